package interfaces

import (
	"context"
	"errors"

	"feeder-analytics/internal/loadprofile/application"
	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// StoreExporter replaces the report tables in a report store.
type StoreExporter struct {
	store loadprofile.ReportStore
	names application.TableNames
}

// NewStoreExporter constructs the exporter; unset table names use the defaults.
func NewStoreExporter(store loadprofile.ReportStore, names application.TableNames) (*StoreExporter, error) {
	if store == nil {
		return nil, errors.New("store exporter: nil report store")
	}
	return &StoreExporter{store: store, names: names.WithDefaults()}, nil
}

// Name identifies the exporter in logs and metrics.
func (e *StoreExporter) Name() string { return "report_store" }

// Export writes the aggregate table and both wide reports.
func (e *StoreExporter) Export(ctx context.Context, results application.Results) error {
	return e.store.ReplaceTables(ctx, application.BuildReportTables(results, e.names))
}
