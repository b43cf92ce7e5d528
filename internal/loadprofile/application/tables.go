package application

import (
	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// Default report table names.
const (
	DefaultFeederTable   = "d_penyulang"
	DefaultEnergyTable   = "d_energi"
	DefaultPeakLoadTable = "d_peak_load"
)

// TableNames names the report tables written to the report store.
type TableNames struct {
	Feeder   string `yaml:"feeder"`
	Energy   string `yaml:"energy"`
	PeakLoad string `yaml:"peak_load"`
}

// WithDefaults fills unset names.
func (n TableNames) WithDefaults() TableNames {
	if n.Feeder == "" {
		n.Feeder = DefaultFeederTable
	}
	if n.Energy == "" {
		n.Energy = DefaultEnergyTable
	}
	if n.PeakLoad == "" {
		n.PeakLoad = DefaultPeakLoadTable
	}
	return n
}

// BuildReportTables materializes the per-feeder aggregates and both wide reports as store tables.
func BuildReportTables(results Results, names TableNames) []loadprofile.Table {
	names = names.WithDefaults()

	feeder := loadprofile.Table{
		Name: names.Feeder,
		Columns: []loadprofile.Column{
			{Name: "year", Type: loadprofile.ColumnInteger},
			{Name: "bulan", Type: loadprofile.ColumnInteger},
			{Name: "penyulang", Type: loadprofile.ColumnText},
			{Name: "peak_load", Type: loadprofile.ColumnFloat},
			{Name: "energy", Type: loadprofile.ColumnFloat},
			{Name: "dur", Type: loadprofile.ColumnFloat},
		},
		Rows: make([][]any, 0, len(results.Aggregates)),
	}
	for _, agg := range results.Aggregates {
		feeder.Rows = append(feeder.Rows, []any{agg.Year, agg.Month, agg.SeriesID, agg.PeakLoad, agg.Energy, agg.OutageHours})
	}

	return []loadprofile.Table{
		feeder,
		wideTable(names.Energy, results.Energy.WithTimeHeader("Time")),
		wideTable(names.PeakLoad, results.PeakLoad.WithTimeHeader("time")),
	}
}

func wideTable(name string, report loadprofile.ReportTable) loadprofile.Table {
	table := loadprofile.Table{
		Name:    name,
		Columns: make([]loadprofile.Column, 0, len(report.Columns)+1),
		Rows:    make([][]any, 0, len(report.Rows)),
	}
	table.Columns = append(table.Columns, loadprofile.Column{Name: report.TimeHeader, Type: loadprofile.ColumnText})
	for _, c := range report.Columns {
		table.Columns = append(table.Columns, loadprofile.Column{Name: c, Type: loadprofile.ColumnFloat})
	}
	for _, row := range report.Rows {
		values := make([]any, 0, len(row.Values)+1)
		values = append(values, row.Label)
		for _, v := range row.Values {
			values = append(values, v)
		}
		table.Rows = append(table.Rows, values)
	}
	return table
}
