package loadprofile

import "time"

// Record is one normalized (time, series, value) observation.
type Record struct {
	Time     time.Time
	SeriesID string
	Value    Cell
}

// RawSheet is an untyped worksheet: a header row followed by data rows.
type RawSheet struct {
	File   string
	Name   string
	Header []string
	Rows   [][]string
}

// Cell returns the raw value at row/col, or "" when the row is short.
func (s RawSheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}
