package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
	"feeder-analytics/internal/loadprofile/infrastructure/memory"
)

type stubSource struct {
	sheets map[string][]loadprofile.RawSheet
	failed map[string]error
	order  []string
	calls  int
}

func (s *stubSource) Workbooks(ctx context.Context) ([]string, error) {
	s.calls++
	return s.order, nil
}

func (s *stubSource) ReadSheets(ctx context.Context, workbook string) ([]loadprofile.RawSheet, error) {
	if err, ok := s.failed[workbook]; ok {
		return nil, err
	}
	return s.sheets[workbook], nil
}

type captureExporter struct {
	name    string
	err     error
	results []Results
}

func (e *captureExporter) Name() string { return e.name }

func (e *captureExporter) Export(ctx context.Context, results Results) error {
	e.results = append(e.results, results)
	return e.err
}

type failingAppendStore struct {
	*memory.RecordStore
}

func (s failingAppendStore) BeginReplace(ctx context.Context, table string) (loadprofile.RecordBatch, error) {
	batch, err := s.RecordStore.BeginReplace(ctx, table)
	if err != nil {
		return nil, err
	}
	return failingBatch{RecordBatch: batch}, nil
}

type failingBatch struct {
	loadprofile.RecordBatch
}

func (failingBatch) Append(ctx context.Context, records []loadprofile.Record) error {
	return errors.New("disk full")
}

// januarySheet returns a sheet of hourly samples for one feeder and an incoming bay.
func januarySheet(file string, values []string) loadprofile.RawSheet {
	sheet := loadprofile.RawSheet{
		File:   file,
		Name:   "Sheet1",
		Header: []string{"Time", "GI_A", "GI_B,incoming"},
	}
	for i, v := range values {
		ts := jan2020.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04")
		sheet.Rows = append(sheet.Rows, []string{ts, v, "50"})
	}
	return sheet
}

func feederValues() []string {
	values := make([]string, 24)
	for i := range values {
		if i < 12 {
			values[i] = "10"
		} else {
			values[i] = "0"
		}
	}
	return values
}

func newStubSource() *stubSource {
	return &stubSource{
		order: []string{"a.xlsx", "broken.xlsx"},
		sheets: map[string][]loadprofile.RawSheet{
			"a.xlsx": {
				januarySheet("a.xlsx", feederValues()),
				{File: "a.xlsx", Name: "Notes", Header: []string{"Catatan"}},
			},
		},
		failed: map[string]error{"broken.xlsx": errors.New("zip: not a valid zip file")},
	}
}

func TestPipelineRun(t *testing.T) {
	store := memory.NewRecordStore()
	exporter := &captureExporter{name: "capture"}
	pipeline, err := NewPipeline(PipelineConfig{Aggregation: AggregatorConfig{Keyword: "gi"}}, newStubSource(), store, nil, exporter)
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, IngestSummary{Files: 2, FailedFiles: 1, Sheets: 2, SkippedSheets: 1, Records: 48}, result.Ingest)
	require.Len(t, result.Results.Aggregates, 1)
	agg := result.Results.Aggregates[0]
	assert.Equal(t, "GI_A", agg.SeriesID)
	assert.InDelta(t, 10*loadprofile.LoadFactor, agg.PeakLoad, 1e-9)
	assert.InDelta(t, 120*loadprofile.LoadFactor, agg.Energy, 1e-9)
	assert.InDelta(t, 12, agg.OutageHours, 1e-9)

	require.Len(t, exporter.results, 1)
	assert.Equal(t, []string{"GI_A"}, exporter.results[0].Energy.Columns)
	assert.Equal(t, 0, store.PendingBatches())

	records, err := store.QueryAll(context.Background(), DefaultRecordsTable)
	require.NoError(t, err)
	assert.Len(t, records, 48)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	store := memory.NewRecordStore()
	pipeline, err := NewPipeline(PipelineConfig{Aggregation: AggregatorConfig{Keyword: "gi"}}, newStubSource(), store, nil)
	require.NoError(t, err)

	first, err := pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	second, err := pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.Results, second.Results)

	records, err := store.QueryAll(context.Background(), DefaultRecordsTable)
	require.NoError(t, err)
	assert.Len(t, records, 48)
}

func TestPipelineSkipIngestUsesStoredRecords(t *testing.T) {
	store := memory.NewRecordStore()
	var records []loadprofile.Record
	for i := 0; i < 4; i++ {
		records = append(records, loadprofile.Record{
			Time:     jan2020.Add(time.Duration(i) * time.Hour),
			SeriesID: "GI_A",
			Value:    loadprofile.NumberCell(float64(i)),
		})
	}
	store.Seed("custom", records)

	source := &stubSource{}
	pipeline, err := NewPipeline(PipelineConfig{RecordsTable: "custom", Aggregation: AggregatorConfig{LoadFactor: 1}}, source, store, nil)
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), RunOptions{SkipIngest: true})
	require.NoError(t, err)
	assert.Zero(t, source.calls)
	require.Len(t, result.Results.Aggregates, 1)
	assert.InDelta(t, 6, result.Results.Aggregates[0].Energy, 1e-9)
	assert.InDelta(t, 1, result.Results.Aggregates[0].OutageHours, 1e-9)
}

func TestPipelineStoreUnavailable(t *testing.T) {
	store := memory.NewRecordStore()
	store.FailPing(errors.New("connection refused"))
	source := newStubSource()
	pipeline, err := NewPipeline(PipelineConfig{}, source, store, nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loadprofile.ErrStoreUnavailable))
	assert.Zero(t, source.calls)
}

func TestPipelineAppendFailureKeepsPreviousTable(t *testing.T) {
	inner := memory.NewRecordStore()
	previous := []loadprofile.Record{{Time: jan2020, SeriesID: "GI_OLD", Value: loadprofile.NumberCell(1)}}
	inner.Seed(DefaultRecordsTable, previous)

	pipeline, err := NewPipeline(PipelineConfig{}, newStubSource(), failingAppendStore{RecordStore: inner}, nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	var sheetErr *loadprofile.SheetError
	require.True(t, errors.As(err, &sheetErr))
	assert.Equal(t, "a.xlsx", sheetErr.File)
	assert.Equal(t, 0, inner.PendingBatches())

	records, err := inner.QueryAll(context.Background(), DefaultRecordsTable)
	require.NoError(t, err)
	assert.Equal(t, previous, records)
}

func TestPipelineStopsAtFirstExportFailure(t *testing.T) {
	failing := &captureExporter{name: "first", err: errors.New("permission denied")}
	next := &captureExporter{name: "second"}
	pipeline, err := NewPipeline(PipelineConfig{}, newStubSource(), memory.NewRecordStore(), nil, failing, next)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export first")
	assert.Len(t, failing.results, 1)
	assert.Empty(t, next.results)
}

func TestPipelineDuplicateRecordsFailAnalysis(t *testing.T) {
	dup := januarySheet("a.xlsx", []string{"1", "2"})
	source := &stubSource{
		order: []string{"a.xlsx", "b.xlsx"},
		sheets: map[string][]loadprofile.RawSheet{
			"a.xlsx": {dup},
			"b.xlsx": {dup},
		},
	}
	pipeline, err := NewPipeline(PipelineConfig{}, source, memory.NewRecordStore(), nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, loadprofile.ErrDuplicateKey))
}

func TestNewPipelineValidates(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{}, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewPipeline(PipelineConfig{}, nil, memory.NewRecordStore(), nil, nil)
	assert.Error(t, err)

	_, err = NewPipeline(PipelineConfig{Aggregation: AggregatorConfig{StartYear: 2021}}, nil, memory.NewRecordStore(), nil)
	assert.True(t, errors.Is(err, loadprofile.ErrInvalidYearRange))

	p, err := NewPipeline(PipelineConfig{}, nil, memory.NewRecordStore(), nil)
	require.NoError(t, err)
	_, err = p.Ingest(context.Background())
	assert.Error(t, err)
}

func ExamplePipeline_Analyze() {
	store := memory.NewRecordStore()
	store.Seed(DefaultRecordsTable, []loadprofile.Record{
		{Time: jan2020, SeriesID: "GI_A", Value: loadprofile.NumberCell(2)},
		{Time: jan2020.Add(time.Hour), SeriesID: "GI_A", Value: loadprofile.NumberCell(0)},
	})
	p, _ := NewPipeline(PipelineConfig{Aggregation: AggregatorConfig{LoadFactor: 1}}, nil, store, nil)
	results, _ := p.Analyze(context.Background())
	for _, a := range results.Aggregates {
		fmt.Printf("%s %s peak=%.0f energy=%.0f outage=%.0f\n", a.Period(), a.SeriesID, a.PeakLoad, a.Energy, a.OutageHours)
	}
	// Output: 2020-01 GI_A peak=2 energy=2 outage=1
}
