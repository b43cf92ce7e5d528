package loadprofile

import "fmt"

// LoadFactor converts feeder current into power units (20 kV line, three phases).
const LoadFactor = 20 * 1.7320508075688772935274463415058723

const periodLabelLayout = "%04d-%02d"

// PeriodAggregate holds the monthly metrics of one feeder.
type PeriodAggregate struct {
	Year        int
	Month       int
	SeriesID    string
	PeakLoad    float64
	Energy      float64
	OutageHours float64
}

// Period returns the reporting label of the aggregate.
func (a PeriodAggregate) Period() string { return PeriodLabel(a.Year, a.Month) }

// PeriodLabel formats a year/month pair as "YYYY-MM".
func PeriodLabel(year, month int) string {
	return fmt.Sprintf(periodLabelLayout, year, month)
}
