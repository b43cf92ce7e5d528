package interfaces

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"feeder-analytics/internal/loadprofile/application"
	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

const (
	feederSheet   = "Penyulang"
	energySheet   = "Energy"
	peakLoadSheet = "Peak Load"

	// reportHeaderRows are left blank above the wide reports for manual annotation.
	reportHeaderRows = 3
)

// BuildResultsXLSX renders aggregates and both wide reports into a workbook.
func BuildResultsXLSX(results application.Results) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", feederSheet); err != nil {
		return nil, err
	}
	header := []any{"Year", "Bulan", "penyulang", "Peak Load", "Energy", "Dur"}
	if err := f.SetSheetRow(feederSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, agg := range results.Aggregates {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{agg.Year, agg.Month, agg.SeriesID, agg.PeakLoad, agg.Energy, agg.OutageHours}
		if err := f.SetSheetRow(feederSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := writeReportSheet(f, energySheet, results.Energy); err != nil {
		return nil, err
	}
	if err := writeReportSheet(f, peakLoadSheet, results.PeakLoad); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeReportSheet(f *excelize.File, sheet string, report loadprofile.ReportTable) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headerRow := reportHeaderRows + 1
	header := make([]any, 0, len(report.Columns)+1)
	header = append(header, report.TimeHeader)
	for _, c := range report.Columns {
		header = append(header, c)
	}
	cell, err := excelize.CoordinatesToCellName(1, headerRow)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return err
	}
	for i, row := range report.Rows {
		values := make([]any, 0, len(row.Values)+1)
		values = append(values, row.Label)
		for _, v := range row.Values {
			values = append(values, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// WorkbookExporter writes the results workbook to a file path.
type WorkbookExporter struct {
	path   string
	logger *log.Logger
}

// NewWorkbookExporter constructs the exporter.
func NewWorkbookExporter(path string, logger *log.Logger) (*WorkbookExporter, error) {
	if path == "" {
		return nil, errors.New("workbook exporter: empty path")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkbookExporter{path: path, logger: logger}, nil
}

// Name identifies the exporter in logs and metrics.
func (e *WorkbookExporter) Name() string { return "xlsx" }

// Export renders and writes the workbook, creating the parent directory.
func (e *WorkbookExporter) Export(ctx context.Context, results application.Results) error {
	_ = ctx
	data, err := BuildResultsXLSX(results)
	if err != nil {
		return err
	}
	if err := writeFile(e.path, data); err != nil {
		return err
	}
	e.logger.Printf("event=xlsx_written path=%s bytes=%d", e.path, len(data))
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
