package interfaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"feeder-analytics/internal/loadprofile/application"
)

// FeederSummary totals one feeder over every exported period.
type FeederSummary struct {
	SeriesID    string
	Periods     int
	Energy      float64
	PeakLoad    float64
	OutageHours float64
}

// SummarizeFeeders folds aggregates per feeder in first-seen order.
func SummarizeFeeders(results application.Results) []FeederSummary {
	var out []FeederSummary
	index := make(map[string]int)
	for _, agg := range results.Aggregates {
		i, ok := index[agg.SeriesID]
		if !ok {
			i = len(out)
			index[agg.SeriesID] = i
			out = append(out, FeederSummary{SeriesID: agg.SeriesID, PeakLoad: agg.PeakLoad})
		}
		s := &out[i]
		s.Periods++
		s.Energy += agg.Energy
		s.OutageHours += agg.OutageHours
		if agg.PeakLoad > s.PeakLoad {
			s.PeakLoad = agg.PeakLoad
		}
	}
	return out
}

// BuildSummaryPDF renders a one-table feeder summary.
func BuildSummaryPDF(results application.Results) ([]byte, error) {
	summaries := SummarizeFeeders(results)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Feeder Load Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if len(results.Energy.Rows) > 0 {
		first := results.Energy.Rows[0].Label
		last := results.Energy.Rows[len(results.Energy.Rows)-1].Label
		pdf.Cell(0, 6, fmt.Sprintf("Periods: %s .. %s (%d)", first, last, len(results.Energy.Rows)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Feeders: %d", len(summaries)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Feeder", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Months", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Energy", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Peak Load", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Outage (h)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range summaries {
		pdf.CellFormat(80, 6, s.SeriesID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", s.Periods), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fixed(s.Energy, 2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fixed(s.PeakLoad, 2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fixed(s.OutageHours, 1), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// PDFExporter writes the feeder summary PDF to a file path.
type PDFExporter struct {
	path   string
	logger *log.Logger
}

// NewPDFExporter constructs the exporter.
func NewPDFExporter(path string, logger *log.Logger) (*PDFExporter, error) {
	if path == "" {
		return nil, errors.New("pdf exporter: empty path")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PDFExporter{path: path, logger: logger}, nil
}

// Name identifies the exporter in logs and metrics.
func (e *PDFExporter) Name() string { return "pdf" }

// Export renders and writes the summary.
func (e *PDFExporter) Export(ctx context.Context, results application.Results) error {
	_ = ctx
	data, err := BuildSummaryPDF(results)
	if err != nil {
		return err
	}
	if err := writeFile(e.path, data); err != nil {
		return err
	}
	e.logger.Printf("event=pdf_written path=%s bytes=%d", e.path, len(data))
	return nil
}
