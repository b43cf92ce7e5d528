package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

const (
	timeKeyword   = "time"
	seriesKeyword = "gi"
)

// timeLayouts are the text layouts a time column may use. Month/day precedes day/month
// so that ambiguous columns keep the month/day reading.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"01-02-06 15:04",
	"2006-01-02",
	"1/2/2006",
	"2/1/2006",
}

// NormalizeResult is the outcome of normalizing one sheet.
type NormalizeResult struct {
	TimeColumn     string
	SeriesColumns  []string
	Records        []loadprofile.Record
	DroppedRecords int
}

// Normalizer reshapes a raw wide sheet into long-format records.
type Normalizer struct {
	location *time.Location
}

// NewNormalizer constructs a normalizer that reads naive times as UTC.
func NewNormalizer() *Normalizer {
	return &Normalizer{location: time.UTC}
}

// Normalize converts one sheet. Sheets without a usable time column or without series
// columns fail with ErrSchemaMismatch wrapped in a SheetError. Text times must all follow
// the layout DetectLayout picks for the column; rows whose time does not parse are dropped
// and counted.
func (n *Normalizer) Normalize(sheet loadprofile.RawSheet) (NormalizeResult, error) {
	header := dedupeHeader(sheet.Header)

	timeCol, err := findTimeColumn(header)
	if err != nil {
		return NormalizeResult{}, &loadprofile.SheetError{File: sheet.File, Sheet: sheet.Name, Err: err}
	}

	var seriesCols []int
	for i, name := range header {
		if i == timeCol || !qualifies(name) {
			continue
		}
		seriesCols = append(seriesCols, i)
	}
	if len(seriesCols) == 0 {
		return NormalizeResult{}, &loadprofile.SheetError{
			File:  sheet.File,
			Sheet: sheet.Name,
			Err:   fmt.Errorf("%w: no series columns", loadprofile.ErrSchemaMismatch),
		}
	}

	rawTimes := make([]string, len(sheet.Rows))
	for row := range sheet.Rows {
		rawTimes[row] = sheet.Cell(row, timeCol)
	}
	layout := n.DetectLayout(rawTimes)

	times := make([]time.Time, len(sheet.Rows))
	valid := make([]bool, len(sheet.Rows))
	for row, raw := range rawTimes {
		t, err := n.parseWithLayout(raw, layout)
		if err != nil {
			continue
		}
		times[row] = t
		valid[row] = true
	}

	result := NormalizeResult{
		TimeColumn:    header[timeCol],
		SeriesColumns: make([]string, 0, len(seriesCols)),
		Records:       make([]loadprofile.Record, 0, len(seriesCols)*len(sheet.Rows)),
	}
	// Column-major, the order a melt produces.
	for _, col := range seriesCols {
		name := header[col]
		result.SeriesColumns = append(result.SeriesColumns, name)
		for row := range sheet.Rows {
			if !valid[row] {
				result.DroppedRecords++
				continue
			}
			result.Records = append(result.Records, loadprofile.Record{
				Time:     times[row],
				SeriesID: name,
				Value:    loadprofile.ParseCell(sheet.Cell(row, col)),
			})
		}
	}
	return result, nil
}

// ParseTime parses a single Excel serial date or text time and returns UTC. The first
// matching layout wins; Normalize instead fixes one layout per column with DetectLayout.
func (n *Normalizer) ParseTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", loadprofile.ErrTimeParse)
	}
	if _, isSerial := parseSerial(value); isSerial {
		return n.parseWithLayout(value, "")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, n.loc()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", loadprofile.ErrTimeParse, raw)
}

// DetectLayout returns the layout that parses the most text values of a time column,
// ignoring blanks and Excel serials. Ties go to the earlier layout. It returns "" when no
// layout matches any value.
func (n *Normalizer) DetectLayout(values []string) string {
	best, bestCount := "", 0
	for _, layout := range timeLayouts {
		count := 0
		for _, raw := range values {
			value := strings.TrimSpace(raw)
			if value == "" {
				continue
			}
			if _, isSerial := parseSerial(value); isSerial {
				continue
			}
			if _, err := time.ParseInLocation(layout, value, n.loc()); err == nil {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = layout, count
		}
	}
	return best
}

// parseWithLayout accepts Excel serials and text in exactly the given layout.
func (n *Normalizer) parseWithLayout(raw, layout string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", loadprofile.ErrTimeParse)
	}
	if serial, isSerial := parseSerial(value); isSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", loadprofile.ErrTimeParse, raw)
		}
		return t.UTC().Round(time.Second), nil
	}
	if layout == "" {
		return time.Time{}, fmt.Errorf("%w: %q", loadprofile.ErrTimeParse, raw)
	}
	t, err := time.ParseInLocation(layout, value, n.loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match %q", loadprofile.ErrTimeParse, raw, layout)
	}
	return t.UTC(), nil
}

func (n *Normalizer) loc() *time.Location {
	if n.location == nil {
		return time.UTC
	}
	return n.location
}

func parseSerial(value string) (float64, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return serial, true
}

func qualifies(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, timeKeyword) || strings.Contains(lower, seriesKeyword)
}

func findTimeColumn(header []string) (int, error) {
	var candidates []int
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == timeKeyword {
			return i, nil
		}
		if strings.Contains(lower, timeKeyword) {
			candidates = append(candidates, i)
		}
	}
	switch len(candidates) {
	case 0:
		return -1, fmt.Errorf("%w: no time column", loadprofile.ErrSchemaMismatch)
	case 1:
		return candidates[0], nil
	default:
		return -1, fmt.Errorf("%w: ambiguous time columns", loadprofile.ErrSchemaMismatch)
	}
}

// dedupeHeader trims names and suffixes repeats with ".1", ".2", ...
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	used := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if !used[name] {
			used[name] = true
			out[i] = name
			continue
		}
		count := seen[name]
		candidate := name
		for used[candidate] {
			count++
			candidate = fmt.Sprintf("%s.%d", name, count)
		}
		seen[name] = count
		used[candidate] = true
		out[i] = candidate
	}
	return out
}
