package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"feeder-analytics/internal/loadprofile/application"
	loadprofile "feeder-analytics/internal/loadprofile/domain"
	"feeder-analytics/internal/loadprofile/infrastructure/memory"
	"feeder-analytics/internal/loadprofile/infrastructure/postgres"
	"feeder-analytics/internal/loadprofile/interfaces"
	"feeder-analytics/internal/observability/metrics"
)

type runFlags struct {
	configPath string
	input      string
	keyword    string
	startYear  int
	endYear    int
	xlsxPath   string
	pdfPath    string
	dryRun     bool
	skipIngest bool
}

func main() {
	_ = godotenv.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Fatalf("run error: %v", err)
	}
}

func newRootCommand(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "feeder-analytics",
		Short:         "Feeder load analytics: peak load, energy and outage duration per month",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(logger))
	return root
}

func newRunCommand(logger *log.Logger) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest workbooks, aggregate per period and export reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(flags.configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			applyFlags(cmd, flags, &cfg)
			if err := cfg.Validate(flags.dryRun, flags.skipIngest); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, flags, logger)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&flags.input, "input", "", "directory or .zip archive of .xlsx workbooks")
	cmd.Flags().StringVar(&flags.keyword, "keyword", loadprofile.DefaultKeyword, "feeder column keyword")
	cmd.Flags().IntVar(&flags.startYear, "start-year", 0, "first year to aggregate (inclusive)")
	cmd.Flags().IntVar(&flags.endYear, "end-year", 0, "last year to aggregate (inclusive)")
	cmd.Flags().StringVar(&flags.xlsxPath, "output", "", "results workbook path")
	cmd.Flags().StringVar(&flags.pdfPath, "pdf", "", "optional feeder summary PDF path")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "use in-memory stores instead of Postgres")
	cmd.Flags().BoolVar(&flags.skipIngest, "skip-ingest", false, "re-aggregate records already in the store")
	return cmd
}

func applyFlags(cmd *cobra.Command, flags runFlags, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputPath = flags.input
	}
	if changed("keyword") {
		cfg.Keyword = flags.keyword
	}
	if changed("start-year") {
		cfg.StartYear = flags.startYear
	}
	if changed("end-year") {
		cfg.EndYear = flags.endYear
	}
	if changed("output") {
		cfg.Output.XLSXPath = flags.xlsxPath
	}
	if changed("pdf") {
		cfg.Output.PDFPath = flags.pdfPath
	}
}

func run(ctx context.Context, cfg Config, flags runFlags, logger *log.Logger) error {
	metrics.Init()
	defer func() {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Printf("event=metrics_write_failed path=%s error=%v", cfg.MetricsTextfile, err)
		}
	}()

	var (
		recordStore loadprofile.RecordStore
		reportStore loadprofile.ReportStore
	)
	if flags.dryRun {
		recordStore = memory.NewRecordStore()
		reportStore = memory.NewReportStore()
	} else {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%w: db open: %v", loadprofile.ErrStoreUnavailable, err)
		}
		defer db.Close()
		recordStore = postgres.NewRecordStore(db)

		reportDB := db
		if cfg.ReportDatabaseURL != "" && cfg.ReportDatabaseURL != cfg.DatabaseURL {
			reportDB, err = sql.Open("pgx", cfg.ReportDatabaseURL)
			if err != nil {
				return fmt.Errorf("%w: report db open: %v", loadprofile.ErrStoreUnavailable, err)
			}
			defer reportDB.Close()
			if err := reportDB.PingContext(ctx); err != nil {
				return fmt.Errorf("%w: report db ping: %v", loadprofile.ErrStoreUnavailable, err)
			}
		}
		reportStore = postgres.NewReportStore(reportDB)
	}

	var source application.SheetSource
	if !flags.skipIngest {
		workbooks, err := interfaces.NewWorkbookSource(cfg.InputPath)
		if err != nil {
			return err
		}
		source = workbooks
	}

	exporters, closeExporters, err := buildExporters(cfg, reportStore, logger)
	if err != nil {
		return err
	}
	defer closeExporters()

	pipeline, err := application.NewPipeline(application.PipelineConfig{
		RecordsTable: cfg.RecordsTable,
		Aggregation: application.AggregatorConfig{
			Keyword:    cfg.Keyword,
			StartYear:  cfg.StartYear,
			EndYear:    cfg.EndYear,
			LoadFactor: cfg.LoadFactor,
		},
	}, source, recordStore, logger, exporters...)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, application.RunOptions{SkipIngest: flags.skipIngest})
	if err != nil {
		return err
	}
	logger.Printf("event=summary run_id=%s files=%d failed_files=%d sheets=%d skipped_sheets=%d records=%d dropped=%d aggregates=%d periods=%d",
		result.RunID,
		result.Ingest.Files,
		result.Ingest.FailedFiles,
		result.Ingest.Sheets,
		result.Ingest.SkippedSheets,
		result.Ingest.Records,
		result.Ingest.DroppedRecords,
		len(result.Results.Aggregates),
		len(result.Results.Energy.Rows),
	)
	return nil
}

func buildExporters(cfg Config, reportStore loadprofile.ReportStore, logger *log.Logger) ([]application.Exporter, func(), error) {
	var exporters []application.Exporter
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Printf("event=exporter_close_failed error=%v", err)
			}
		}
	}

	if cfg.Output.XLSXPath != "" {
		xlsx, err := interfaces.NewWorkbookExporter(cfg.Output.XLSXPath, logger)
		if err != nil {
			return nil, closeAll, err
		}
		exporters = append(exporters, xlsx)
	}

	storeExporter, err := interfaces.NewStoreExporter(reportStore, cfg.ReportTables)
	if err != nil {
		return nil, closeAll, err
	}
	exporters = append(exporters, storeExporter)

	if cfg.Output.PDFPath != "" {
		pdf, err := interfaces.NewPDFExporter(cfg.Output.PDFPath, logger)
		if err != nil {
			return nil, closeAll, err
		}
		exporters = append(exporters, pdf)
	}

	if cfg.Kafka.Brokers != "" {
		writer, err := interfaces.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, closeAll, err
		}
		publisher, err := interfaces.NewKafkaPublisher(writer)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, publisher.Close)
		exporters = append(exporters, publisher)
	}
	return exporters, closeAll, nil
}
