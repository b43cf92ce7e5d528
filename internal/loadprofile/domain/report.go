package loadprofile

// ReportRow is one period of a wide report.
type ReportRow struct {
	Label  string
	Values []float64
}

// ReportTable is a wide report: one row per period, one column per series.
type ReportTable struct {
	TimeHeader string
	Columns    []string
	Rows       []ReportRow
}

// Value returns the cell for a period row and series, 0 when absent.
func (t ReportTable) Value(row int, seriesID string) float64 {
	if row < 0 || row >= len(t.Rows) {
		return 0
	}
	for i, c := range t.Columns {
		if c == seriesID {
			if i < len(t.Rows[row].Values) {
				return t.Rows[row].Values[i]
			}
			return 0
		}
	}
	return 0
}

// WithTimeHeader returns a copy of the table using a different time header.
func (t ReportTable) WithTimeHeader(header string) ReportTable {
	t.TimeHeader = header
	return t
}
