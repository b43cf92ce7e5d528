package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "feeder_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runTotal   *prometheus.CounterVec
	runLatency *prometheus.HistogramVec

	filesTotal      *prometheus.CounterVec
	sheetsSkipped   *prometheus.CounterVec
	recordsIngested prometheus.Counter
	recordsDropped  *prometheus.CounterVec

	aggregatesTotal prometheus.Counter
	exportTotal     *prometheus.CounterVec
	exportLatency   *prometheus.HistogramVec
)

// Init registers pipeline metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		runTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Total pipeline runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"result"},
		)
		filesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_files_total",
				Help: "Total workbooks read by result",
			},
			[]string{"result"},
		)
		sheetsSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_sheets_skipped_total",
				Help: "Total sheets skipped by reason",
			},
			[]string{"reason"},
		)
		recordsIngested = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_records_total",
				Help: "Total normalized records written to the record store",
			},
		)
		recordsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_records_dropped_total",
				Help: "Total records dropped during normalization by reason",
			},
			[]string{"reason"},
		)
		aggregatesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_aggregates_total",
				Help: "Total period aggregates computed",
			},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by target and result",
			},
			[]string{"target", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target", "result"},
		)

		prometheus.MustRegister(
			runTotal,
			runLatency,
			filesTotal,
			sheetsSkipped,
			recordsIngested,
			recordsDropped,
			aggregatesTotal,
			exportTotal,
			exportLatency,
		)
	})
}

// ObserveRun records run duration and result.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runTotal != nil {
		runTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncFile increments the workbook counter.
func IncFile(result string) {
	if result == "" {
		result = resultSuccess
	}
	if filesTotal != nil {
		filesTotal.WithLabelValues(result).Inc()
	}
}

// IncSheetSkipped increments skipped sheets.
func IncSheetSkipped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if sheetsSkipped != nil {
		sheetsSkipped.WithLabelValues(reason).Inc()
	}
}

// AddRecordsIngested adds written records.
func AddRecordsIngested(count int) {
	if count <= 0 {
		return
	}
	if recordsIngested != nil {
		recordsIngested.Add(float64(count))
	}
}

// AddRecordsDropped adds dropped records.
func AddRecordsDropped(reason string, count int) {
	if count <= 0 {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	if recordsDropped != nil {
		recordsDropped.WithLabelValues(reason).Add(float64(count))
	}
}

// AddAggregates adds computed aggregates.
func AddAggregates(count int) {
	if count <= 0 {
		return
	}
	if aggregatesTotal != nil {
		aggregatesTotal.Add(float64(count))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(target, result string, duration time.Duration) {
	if target == "" {
		target = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(target, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(target, result).Observe(duration.Seconds())
	}
}

// WriteTextfile dumps the default registry for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ReasonSchemaMismatch = "schema_mismatch"
	ReasonTimeParse      = "time_parse"
)
