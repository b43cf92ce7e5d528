package application

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

func at(hour int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hour) * time.Hour)
}

func TestPivotOrdersRowsAndColumns(t *testing.T) {
	records := []loadprofile.Record{
		{Time: at(2), SeriesID: "GI_B", Value: loadprofile.NumberCell(5)},
		{Time: at(0), SeriesID: "GI_B", Value: loadprofile.NumberCell(3)},
		{Time: at(1), SeriesID: "GI_A", Value: loadprofile.TextCell("-")},
		{Time: at(0), SeriesID: "GI_A", Value: loadprofile.NumberCell(1)},
	}

	matrix, err := Pivot(records)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{at(0), at(1), at(2)}, matrix.Times)
	assert.Equal(t, []string{"GI_A", "GI_B"}, matrix.Series)
	assert.Equal(t, loadprofile.NumberCell(1), matrix.Cells[0][0])
	assert.Equal(t, loadprofile.NumberCell(3), matrix.Cells[0][1])
	assert.Equal(t, loadprofile.TextCell("-"), matrix.Cells[1][0])
	assert.True(t, matrix.Cells[1][1].IsEmpty())
	assert.True(t, matrix.Cells[2][0].IsEmpty())
	assert.True(t, matrix.IsTextColumn(0))
	assert.False(t, matrix.IsTextColumn(1))
}

func TestPivotRejectsDuplicateKeys(t *testing.T) {
	records := []loadprofile.Record{
		{Time: at(0), SeriesID: "GI_A", Value: loadprofile.NumberCell(1)},
		{Time: at(0).In(time.FixedZone("WIB", 7*3600)), SeriesID: "GI_A", Value: loadprofile.NumberCell(2)},
	}

	_, err := Pivot(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loadprofile.ErrDuplicateKey))

	var dup *loadprofile.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "GI_A", dup.SeriesID)
	assert.True(t, dup.Time.Equal(at(0)))
}

func TestPivotFlattenRoundTrip(t *testing.T) {
	records := []loadprofile.Record{
		{Time: at(0), SeriesID: "GI_A", Value: loadprofile.NumberCell(1)},
		{Time: at(0), SeriesID: "GI_B", Value: loadprofile.NumberCell(2)},
		{Time: at(1), SeriesID: "GI_A", Value: loadprofile.TextCell("#REF!")},
		{Time: at(2), SeriesID: "GI_B", Value: loadprofile.NumberCell(0)},
	}

	matrix, err := Pivot(records)
	require.NoError(t, err)
	assert.Equal(t, records, Flatten(matrix))
}

func TestPivotEmpty(t *testing.T) {
	matrix, err := Pivot(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, matrix.Len())
	assert.Empty(t, Flatten(matrix))
	assert.Nil(t, Flatten(nil))
}

func TestPivotKeepsTimesBeyondNanosecondRange(t *testing.T) {
	early := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	// 2^64 ns later: same UnixNano after overflow, different instant.
	late := early.Add(math.MaxInt64).Add(math.MaxInt64).Add(2)
	require.Equal(t, early.UnixNano(), late.UnixNano())

	records := []loadprofile.Record{
		{Time: early, SeriesID: "GI_A", Value: loadprofile.NumberCell(1)},
		{Time: late, SeriesID: "GI_A", Value: loadprofile.NumberCell(2)},
	}
	matrix, err := Pivot(records)
	require.NoError(t, err)
	require.Equal(t, 2, matrix.Len())
	assert.True(t, matrix.Times[0].Equal(early))
	assert.True(t, matrix.Times[1].Equal(late))
	assert.Equal(t, loadprofile.NumberCell(2), matrix.Cells[1][0])
}
