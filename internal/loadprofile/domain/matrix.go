package loadprofile

import "time"

// WideMatrix is the time-indexed pivot of the record stream: one row per distinct
// time in ascending order and one column per series.
type WideMatrix struct {
	Times  []time.Time
	Series []string
	// Cells is indexed [row][column].
	Cells [][]Cell
}

// ColumnIndex returns the column position of a series, or -1.
func (m *WideMatrix) ColumnIndex(seriesID string) int {
	if m == nil {
		return -1
	}
	for i, s := range m.Series {
		if s == seriesID {
			return i
		}
	}
	return -1
}

// Column returns the cells of one column in row order.
func (m *WideMatrix) Column(col int) []Cell {
	if m == nil || col < 0 || col >= len(m.Series) {
		return nil
	}
	out := make([]Cell, len(m.Times))
	for row := range m.Times {
		out[row] = m.Cells[row][col]
	}
	return out
}

// IsTextColumn reports whether any cell of the column is text-typed.
func (m *WideMatrix) IsTextColumn(col int) bool {
	if m == nil || col < 0 || col >= len(m.Series) {
		return false
	}
	for row := range m.Times {
		if m.Cells[row][col].Kind == CellText {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (m *WideMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Times)
}
