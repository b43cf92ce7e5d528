package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

func TestRecordStoreReplace(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.QueryAll(ctx, "beban")
	assert.Error(t, err)

	batch, err := store.BeginReplace(ctx, "beban")
	require.NoError(t, err)
	assert.Equal(t, 1, store.PendingBatches())

	require.NoError(t, batch.Append(ctx, []loadprofile.Record{
		{Time: start.Add(time.Hour), SeriesID: "GI_A", Value: loadprofile.NumberCell(2)},
		{Time: start, SeriesID: "GI_B", Value: loadprofile.NumberCell(3)},
		{Time: start, SeriesID: "GI_A", Value: loadprofile.NumberCell(1)},
	}))

	_, err = store.QueryAll(ctx, "beban")
	assert.Error(t, err, "uncommitted batch must not be visible")

	require.NoError(t, batch.Commit(ctx))
	assert.Equal(t, 0, store.PendingBatches())
	assert.Error(t, batch.Commit(ctx))
	assert.NoError(t, batch.Abort(ctx))

	got, err := store.QueryAll(ctx, "beban")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "GI_A", got[0].SeriesID)
	assert.Equal(t, "GI_B", got[1].SeriesID)
	assert.True(t, got[2].Time.Equal(start.Add(time.Hour)))
}

func TestRecordStoreAbortKeepsLiveTable(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()
	live := []loadprofile.Record{{Time: time.Unix(0, 0).UTC(), SeriesID: "GI_A", Value: loadprofile.NumberCell(1)}}
	store.Seed("beban", live)

	batch, err := store.BeginReplace(ctx, "beban")
	require.NoError(t, err)
	require.NoError(t, batch.Append(ctx, []loadprofile.Record{{SeriesID: "GI_X"}}))
	require.NoError(t, batch.Abort(ctx))
	assert.Error(t, batch.Append(ctx, nil))

	got, err := store.QueryAll(ctx, "beban")
	require.NoError(t, err)
	assert.Equal(t, live, got)
	assert.Equal(t, 0, store.PendingBatches())
}

func TestRecordStorePingAndNames(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()
	require.NoError(t, store.Ping(ctx))

	down := errors.New("down")
	store.FailPing(down)
	assert.ErrorIs(t, store.Ping(ctx), down)

	_, err := store.BeginReplace(ctx, "")
	assert.ErrorIs(t, err, loadprofile.ErrEmptyTable)
	_, err = store.QueryAll(ctx, "")
	assert.ErrorIs(t, err, loadprofile.ErrEmptyTable)
}

func TestReportStoreReplaceTables(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()
	first := loadprofile.Table{Name: "d_energi", Rows: [][]any{{"2020-01", 1.0}}}
	require.NoError(t, store.ReplaceTables(ctx, []loadprofile.Table{first}))

	second := loadprofile.Table{Name: "d_energi", Rows: [][]any{{"2020-02", 2.0}}}
	err := store.ReplaceTables(ctx, []loadprofile.Table{second, {Name: ""}})
	assert.ErrorIs(t, err, loadprofile.ErrEmptyTable)

	got, ok := store.Table("d_energi")
	require.True(t, ok)
	assert.Equal(t, first, got)

	require.NoError(t, store.ReplaceTables(ctx, []loadprofile.Table{second}))
	got, _ = store.Table("d_energi")
	assert.Equal(t, second, got)

	_, ok = store.Table("missing")
	assert.False(t, ok)
}
