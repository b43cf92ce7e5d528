package application

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

const sentinelChars = "-#"

// AggregatorConfig selects the series and years to aggregate.
type AggregatorConfig struct {
	Keyword   string
	StartYear int
	EndYear   int
	// LoadFactor defaults to loadprofile.LoadFactor.
	LoadFactor float64
}

// Aggregator derives monthly peak load, energy and outage duration per feeder.
type Aggregator struct {
	selector   loadprofile.SeriesSelector
	startYear  int
	endYear    int
	loadFactor float64
	logger     *log.Logger
}

// NewAggregator validates the config. When both years are zero the range is taken from the data.
func NewAggregator(cfg AggregatorConfig, logger *log.Logger) (*Aggregator, error) {
	if cfg.StartYear > cfg.EndYear {
		return nil, fmt.Errorf("%w: %d > %d", loadprofile.ErrInvalidYearRange, cfg.StartYear, cfg.EndYear)
	}
	if (cfg.StartYear == 0) != (cfg.EndYear == 0) {
		return nil, fmt.Errorf("%w: both years or neither must be set", loadprofile.ErrInvalidYearRange)
	}
	if cfg.LoadFactor <= 0 {
		cfg.LoadFactor = loadprofile.LoadFactor
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Aggregator{
		selector:   loadprofile.NewSeriesSelector(cfg.Keyword),
		startYear:  cfg.StartYear,
		endYear:    cfg.EndYear,
		loadFactor: cfg.LoadFactor,
		logger:     logger,
	}, nil
}

// SamplesPerHour infers the sampling rate from the gap between the first two rows.
// The same rate is applied to every period.
func SamplesPerHour(times []time.Time) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("%w: need at least two timestamps, got %d", loadprofile.ErrInsufficientSamples, len(times))
	}
	delta := times[1].Sub(times[0]).Seconds()
	if delta <= 0 {
		return 0, fmt.Errorf("%w: non-increasing first interval", loadprofile.ErrInsufficientSamples)
	}
	return 3600 / delta, nil
}

// Aggregate walks every (year, month) in range and emits one aggregate per feeder column
// that has data in that month, ordered by year, month and series id.
func (a *Aggregator) Aggregate(matrix *loadprofile.WideMatrix) ([]loadprofile.PeriodAggregate, error) {
	if matrix.Len() == 0 {
		return nil, nil
	}
	samplesPerHour, err := SamplesPerHour(matrix.Times)
	if err != nil {
		return nil, err
	}

	startYear, endYear := a.startYear, a.endYear
	if startYear == 0 && endYear == 0 {
		startYear = matrix.Times[0].Year()
		endYear = matrix.Times[len(matrix.Times)-1].Year()
	}

	columns := a.selectColumns(matrix)
	textColumn := make(map[int]bool, len(columns))
	for _, col := range columns {
		textColumn[col] = matrix.IsTextColumn(col)
	}

	var out []loadprofile.PeriodAggregate
	for year := startYear; year <= endYear; year++ {
		for month := 1; month <= 12; month++ {
			from, to := monthRows(matrix.Times, year, month)
			if from == to {
				continue
			}
			emitted := 0
			for _, col := range columns {
				agg, ok, err := a.aggregateColumn(matrix, col, from, to, textColumn[col])
				if err != nil {
					return nil, &loadprofile.PeriodError{Year: year, Month: month, SeriesID: matrix.Series[col], Err: err}
				}
				if !ok {
					continue
				}
				agg.Year = year
				agg.Month = month
				out = append(out, agg)
				emitted++
			}
			if emitted == 0 {
				a.logger.Printf("event=period_empty period=%s keyword=%s reason=%v",
					loadprofile.PeriodLabel(year, month), a.selector.Keyword(), loadprofile.ErrNoMatchingSeries)
			}
		}
	}

	for i := range out {
		out[i].PeakLoad *= a.loadFactor
		out[i].Energy = out[i].Energy / samplesPerHour * a.loadFactor
		out[i].OutageHours /= samplesPerHour
	}
	return out, nil
}

// selectColumns returns matching column positions, one per distinct name, in series order.
func (a *Aggregator) selectColumns(matrix *loadprofile.WideMatrix) []int {
	names := lo.Uniq(lo.Filter(matrix.Series, func(name string, _ int) bool {
		return a.selector.Match(name)
	}))
	cols := make([]int, 0, len(names))
	for _, name := range names {
		cols = append(cols, matrix.ColumnIndex(name))
	}
	sort.Ints(cols)
	return cols
}

// aggregateColumn fills PeakLoad with the raw maximum, Energy with the raw sum and
// OutageHours with the zero count; scaling happens once the sampling rate is known.
func (a *Aggregator) aggregateColumn(matrix *loadprofile.WideMatrix, col, from, to int, text bool) (loadprofile.PeriodAggregate, bool, error) {
	hasData := false
	for row := from; row < to; row++ {
		if !matrix.Cells[row][col].IsEmpty() {
			hasData = true
			break
		}
	}
	if !hasData {
		return loadprofile.PeriodAggregate{}, false, nil
	}

	agg := loadprofile.PeriodAggregate{SeriesID: matrix.Series[col]}
	for row := from; row < to; row++ {
		v, err := cleanValue(matrix.Cells[row][col], text)
		if err != nil {
			return loadprofile.PeriodAggregate{}, false, fmt.Errorf("row %s: %w", matrix.Times[row].Format(time.RFC3339), err)
		}
		if row == from || v > agg.PeakLoad {
			agg.PeakLoad = v
		}
		agg.Energy += v
		if v == 0 {
			agg.OutageHours++
		}
	}
	return agg, true, nil
}

// cleanValue maps empty cells to 0, sentinel text in text-typed columns to 0 and parses
// any other text as a float.
func cleanValue(cell loadprofile.Cell, textColumn bool) (float64, error) {
	switch cell.Kind {
	case loadprofile.CellNumber:
		return cell.Number, nil
	case loadprofile.CellText:
		if textColumn && strings.ContainsAny(cell.Text, sentinelChars) {
			return 0, nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell.Text), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", loadprofile.ErrInvalidValue, cell.Text)
		}
		return v, nil
	default:
		return 0, nil
	}
}

// monthRows returns the half-open row range of times within the month.
func monthRows(times []time.Time, year, month int) (int, int) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	from := sort.Search(len(times), func(i int) bool { return !times[i].Before(start) })
	to := sort.Search(len(times), func(i int) bool { return !times[i].Before(end) })
	return from, to
}
