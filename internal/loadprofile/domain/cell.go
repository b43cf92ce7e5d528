package loadprofile

import (
	"math"
	"strconv"
	"strings"
)

// CellKind classifies a raw spreadsheet value.
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellNumber CellKind = "number"
	CellText   CellKind = "text"
)

// Cell is a nullable spreadsheet value that remembers whether it was typed as text.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// EmptyCell returns a null cell.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// missingMarkers are spreadsheet spellings of a missing value.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "N/A": {}, "n/a": {}, "NA": {}, "<NA>": {},
	"NULL": {}, "null": {}, "None": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "-1.#IND": {}, "1.#QNAN": {}, "-1.#QNAN": {},
}

// ParseCell classifies a raw string: blank and missing markers are empty, numeric-looking
// is a number, anything else is text.
func ParseCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyCell()
	}
	if _, missing := missingMarkers[trimmed]; missing {
		return EmptyCell()
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(v) {
			return EmptyCell()
		}
		return NumberCell(v)
	}
	return TextCell(raw)
}

// IsEmpty reports whether the cell is null.
func (c Cell) IsEmpty() bool { return c.Kind == "" || c.Kind == CellEmpty }

// String renders the cell the way it would appear in a sheet.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}
