package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	loadprofile "feeder-analytics/internal/loadprofile/domain"
	"feeder-analytics/internal/observability/metrics"
)

// DefaultRecordsTable holds the normalized load records.
const DefaultRecordsTable = "beban_penyulang"

// SheetSource lists workbooks and reads their sheets.
type SheetSource interface {
	Workbooks(ctx context.Context) ([]string, error)
	ReadSheets(ctx context.Context, workbook string) ([]loadprofile.RawSheet, error)
}

// Results are the derived artifacts of one run.
type Results struct {
	Aggregates []loadprofile.PeriodAggregate
	Energy     loadprofile.ReportTable
	PeakLoad   loadprofile.ReportTable
}

// Exporter delivers results to one destination.
type Exporter interface {
	Name() string
	Export(ctx context.Context, results Results) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PipelineConfig is the explicit configuration of a run.
type PipelineConfig struct {
	RecordsTable string
	Aggregation  AggregatorConfig
}

// IngestSummary counts what an ingestion pass read, skipped and wrote.
type IngestSummary struct {
	Files          int
	FailedFiles    int
	Sheets         int
	SkippedSheets  int
	Records        int
	DroppedRecords int
}

// RunOptions tunes a single run.
type RunOptions struct {
	// SkipIngest re-aggregates the records already in the store.
	SkipIngest bool
}

// RunResult is returned by a completed run.
type RunResult struct {
	RunID    string
	Ingest   IngestSummary
	Results  Results
	Duration time.Duration
}

// Pipeline runs ingestion, aggregation and export in sequence.
// Runs against the same records table must be serialized by the caller.
type Pipeline struct {
	recordsTable string
	source       SheetSource
	store        loadprofile.RecordStore
	normalizer   *Normalizer
	aggregator   *Aggregator
	exporters    []Exporter
	logger       *log.Logger
	clock        Clock
}

// NewPipeline constructs a pipeline. source may be nil when every run skips ingestion.
func NewPipeline(cfg PipelineConfig, source SheetSource, store loadprofile.RecordStore, logger *log.Logger, exporters ...Exporter) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("pipeline: nil record store")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.RecordsTable == "" {
		cfg.RecordsTable = DefaultRecordsTable
	}
	aggregator, err := NewAggregator(cfg.Aggregation, logger)
	if err != nil {
		return nil, err
	}
	for _, exp := range exporters {
		if exp == nil {
			return nil, errors.New("pipeline: nil exporter")
		}
	}
	return &Pipeline{
		recordsTable: cfg.RecordsTable,
		source:       source,
		store:        store,
		normalizer:   NewNormalizer(),
		aggregator:   aggregator,
		exporters:    exporters,
		logger:       logger,
		clock:        SystemClock{},
	}, nil
}

// Run executes the whole pipeline. The store is checked before anything is touched.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := p.clock.Now()
	runID := uuid.NewString()
	result := &RunResult{RunID: runID}

	err := p.run(ctx, opts, result)
	result.Duration = p.clock.Now().Sub(start)
	if err != nil {
		metrics.ObserveRun(metrics.ResultError, result.Duration)
		p.logger.Printf("event=run_failed run_id=%s duration=%s error=%v", runID, result.Duration, err)
		return result, err
	}
	metrics.ObserveRun(metrics.ResultSuccess, result.Duration)
	p.logger.Printf("event=run_completed run_id=%s files=%d records=%d aggregates=%d duration=%s",
		runID, result.Ingest.Files, result.Ingest.Records, len(result.Results.Aggregates), result.Duration)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, result *RunResult) error {
	if err := p.store.Ping(ctx); err != nil {
		if errors.Is(err, loadprofile.ErrStoreUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", loadprofile.ErrStoreUnavailable, err)
	}

	if !opts.SkipIngest {
		summary, err := p.Ingest(ctx)
		result.Ingest = summary
		if err != nil {
			return err
		}
	}

	results, err := p.Analyze(ctx)
	if err != nil {
		return err
	}
	result.Results = results

	return p.Export(ctx, results)
}

// Ingest replaces the records table with the normalized content of every readable sheet.
// Unreadable files and mismatched sheets are logged and skipped. If writing fails the
// staged content is discarded and the previous table stays in place.
func (p *Pipeline) Ingest(ctx context.Context) (IngestSummary, error) {
	var summary IngestSummary
	if p.source == nil {
		return summary, errors.New("pipeline: nil sheet source")
	}

	workbooks, err := p.source.Workbooks(ctx)
	if err != nil {
		return summary, fmt.Errorf("list workbooks: %w", err)
	}

	batch, err := p.store.BeginReplace(ctx, p.recordsTable)
	if err != nil {
		return summary, fmt.Errorf("begin replace %s: %w", p.recordsTable, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if abortErr := batch.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			p.logger.Printf("event=replace_abort_failed table=%s error=%v", p.recordsTable, abortErr)
		}
	}()

	for i, workbook := range workbooks {
		summary.Files++
		sheets, err := p.source.ReadSheets(ctx, workbook)
		if err != nil {
			summary.FailedFiles++
			metrics.IncFile(metrics.ResultError)
			p.logger.Printf("event=file_failed file=%s error=%v", workbook, err)
			continue
		}
		metrics.IncFile(metrics.ResultSuccess)

		for _, sheet := range sheets {
			summary.Sheets++
			normalized, err := p.normalizer.Normalize(sheet)
			if err != nil {
				summary.SkippedSheets++
				metrics.IncSheetSkipped(metrics.ReasonSchemaMismatch)
				p.logger.Printf("event=sheet_skipped file=%s sheet=%s error=%v", sheet.File, sheet.Name, err)
				continue
			}
			if normalized.DroppedRecords > 0 {
				summary.DroppedRecords += normalized.DroppedRecords
				metrics.AddRecordsDropped(metrics.ReasonTimeParse, normalized.DroppedRecords)
				p.logger.Printf("event=records_dropped file=%s sheet=%s count=%d reason=%v",
					sheet.File, sheet.Name, normalized.DroppedRecords, loadprofile.ErrTimeParse)
			}
			if len(normalized.Records) == 0 {
				continue
			}
			if err := batch.Append(ctx, normalized.Records); err != nil {
				return summary, &loadprofile.SheetError{File: sheet.File, Sheet: sheet.Name, Err: fmt.Errorf("append records: %w", err)}
			}
			summary.Records += len(normalized.Records)
		}
		p.logger.Printf("event=file_ingested file=%s progress=%d/%d records=%d", workbook, i+1, len(workbooks), summary.Records)
	}

	if err := batch.Commit(ctx); err != nil {
		return summary, fmt.Errorf("commit replace %s: %w", p.recordsTable, err)
	}
	committed = true
	metrics.AddRecordsIngested(summary.Records)
	return summary, nil
}

// Analyze reads the records table back and derives aggregates and reports.
func (p *Pipeline) Analyze(ctx context.Context) (Results, error) {
	records, err := p.store.QueryAll(ctx, p.recordsTable)
	if err != nil {
		return Results{}, fmt.Errorf("query %s: %w", p.recordsTable, err)
	}
	matrix, err := Pivot(records)
	if err != nil {
		return Results{}, fmt.Errorf("pivot %s: %w", p.recordsTable, err)
	}
	aggregates, err := p.aggregator.Aggregate(matrix)
	if err != nil {
		return Results{}, fmt.Errorf("aggregate: %w", err)
	}
	metrics.AddAggregates(len(aggregates))

	energy, peak := Reshape(aggregates)
	return Results{Aggregates: aggregates, Energy: energy, PeakLoad: peak}, nil
}

// Export hands the results to every exporter in order and stops at the first failure.
func (p *Pipeline) Export(ctx context.Context, results Results) error {
	for _, exp := range p.exporters {
		start := p.clock.Now()
		err := exp.Export(ctx, results)
		elapsed := p.clock.Now().Sub(start)
		if err != nil {
			metrics.ObserveExport(exp.Name(), metrics.ResultError, elapsed)
			return fmt.Errorf("export %s: %w", exp.Name(), err)
		}
		metrics.ObserveExport(exp.Name(), metrics.ResultSuccess, elapsed)
		p.logger.Printf("event=exported target=%s aggregates=%d duration=%s", exp.Name(), len(results.Aggregates), elapsed)
	}
	return nil
}
