package application

import (
	"sort"
	"time"

	"github.com/samber/lo"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// Pivot turns the long record stream into a wide matrix: ascending times as rows and
// sorted series ids as columns. A (time, series) pair seen twice is rejected with a
// DuplicateKeyError.
func Pivot(records []loadprofile.Record) (*loadprofile.WideMatrix, error) {
	type key struct {
		at     instant
		series string
	}

	seen := make(map[key]struct{}, len(records))
	timeByKey := make(map[instant]time.Time)
	for _, rec := range records {
		at := rec.Time.UTC()
		k := key{at: instantOf(at), series: rec.SeriesID}
		if _, dup := seen[k]; dup {
			return nil, &loadprofile.DuplicateKeyError{Time: at, SeriesID: rec.SeriesID}
		}
		seen[k] = struct{}{}
		timeByKey[k.at] = at
	}

	series := lo.Uniq(lo.Map(records, func(rec loadprofile.Record, _ int) string { return rec.SeriesID }))
	sort.Strings(series)

	keys := lo.Keys(timeByKey)
	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })

	matrix := &loadprofile.WideMatrix{
		Times:  make([]time.Time, len(keys)),
		Series: series,
		Cells:  make([][]loadprofile.Cell, len(keys)),
	}
	rowIndex := make(map[instant]int, len(keys))
	for i, k := range keys {
		matrix.Times[i] = timeByKey[k]
		matrix.Cells[i] = make([]loadprofile.Cell, len(series))
		for j := range series {
			matrix.Cells[i][j] = loadprofile.EmptyCell()
		}
		rowIndex[k] = i
	}
	colIndex := make(map[string]int, len(series))
	for j, s := range series {
		colIndex[s] = j
	}

	for _, rec := range records {
		row := rowIndex[instantOf(rec.Time)]
		col := colIndex[rec.SeriesID]
		matrix.Cells[row][col] = rec.Value
	}
	return matrix, nil
}

// instant identifies a point in time over the full time.Time range.
type instant struct {
	sec  int64
	nsec int
}

func instantOf(t time.Time) instant {
	return instant{sec: t.Unix(), nsec: t.Nanosecond()}
}

func (i instant) before(o instant) bool {
	if i.sec != o.sec {
		return i.sec < o.sec
	}
	return i.nsec < o.nsec
}

// Flatten is the inverse of Pivot. It emits every non-empty cell ordered by time, then series.
func Flatten(matrix *loadprofile.WideMatrix) []loadprofile.Record {
	if matrix == nil {
		return nil
	}
	var out []loadprofile.Record
	for row, at := range matrix.Times {
		for col, series := range matrix.Series {
			cell := matrix.Cells[row][col]
			if cell.IsEmpty() {
				continue
			}
			out = append(out, loadprofile.Record{Time: at, SeriesID: series, Value: cell})
		}
	}
	return out
}
