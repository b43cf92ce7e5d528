package application

import (
	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

const reportTimeHeader = "Time"

// Reshape pivots period aggregates into the energy and peak load reports. Periods keep
// their first-seen order, columns are the union of series in first-seen order and cells
// without an aggregate are 0. When a period repeats a series the first aggregate wins.
func Reshape(aggregates []loadprofile.PeriodAggregate) (energy, peak loadprofile.ReportTable) {
	var (
		periods   []string
		columns   []string
		periodIdx = make(map[string]int)
		columnIdx = make(map[string]int)
	)
	type cell struct {
		energy float64
		peak   float64
	}
	values := make(map[string]map[string]cell)

	for _, agg := range aggregates {
		label := agg.Period()
		if _, ok := periodIdx[label]; !ok {
			periodIdx[label] = len(periods)
			periods = append(periods, label)
			values[label] = make(map[string]cell)
		}
		if _, ok := columnIdx[agg.SeriesID]; !ok {
			columnIdx[agg.SeriesID] = len(columns)
			columns = append(columns, agg.SeriesID)
		}
		if _, ok := values[label][agg.SeriesID]; ok {
			continue
		}
		values[label][agg.SeriesID] = cell{energy: agg.Energy, peak: agg.PeakLoad}
	}

	energy = loadprofile.ReportTable{TimeHeader: reportTimeHeader, Columns: columns}
	peak = loadprofile.ReportTable{TimeHeader: reportTimeHeader, Columns: append([]string(nil), columns...)}
	for _, label := range periods {
		energyRow := loadprofile.ReportRow{Label: label, Values: make([]float64, len(columns))}
		peakRow := loadprofile.ReportRow{Label: label, Values: make([]float64, len(columns))}
		for series, v := range values[label] {
			i := columnIdx[series]
			energyRow.Values[i] = v.energy
			peakRow.Values[i] = v.peak
		}
		energy.Rows = append(energy.Rows, energyRow)
		peak.Rows = append(peak.Rows, peakRow)
	}
	return energy, peak
}
