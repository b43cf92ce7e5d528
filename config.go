package main

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"feeder-analytics/internal/loadprofile/application"
	loadprofile "feeder-analytics/internal/loadprofile/domain"
)

// OutputConfig lists the file outputs of a run.
type OutputConfig struct {
	XLSXPath string `yaml:"xlsx_path"`
	PDFPath  string `yaml:"pdf_path"`
}

// KafkaConfig enables publishing aggregates to a topic.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

// Config is the run configuration.
type Config struct {
	DatabaseURL       string                 `yaml:"database_url"`
	ReportDatabaseURL string                 `yaml:"report_database_url"`
	InputPath         string                 `yaml:"input_path"`
	Keyword           string                 `yaml:"keyword"`
	StartYear         int                    `yaml:"start_year"`
	EndYear           int                    `yaml:"end_year"`
	LoadFactor        float64                `yaml:"load_factor"`
	RecordsTable      string                 `yaml:"records_table"`
	ReportTables      application.TableNames `yaml:"report_tables"`
	Output            OutputConfig           `yaml:"output"`
	Kafka             KafkaConfig            `yaml:"kafka"`
	MetricsTextfile   string                 `yaml:"metrics_textfile"`
}

// LoadConfig builds the config from defaults, an optional YAML file and the environment.
// Environment values override the file.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Keyword:      loadprofile.DefaultKeyword,
		RecordsTable: application.DefaultRecordsTable,
		Output:       OutputConfig{XLSXPath: "output/res_dist.xlsx"},
	}

	if path == "" {
		path = os.Getenv("FEEDER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.ReportDatabaseURL = getenvDefault("REPORT_DATABASE_URL", cfg.ReportDatabaseURL)
	cfg.InputPath = getenvDefault("FEEDER_INPUT", cfg.InputPath)
	cfg.Keyword = getenvDefault("FEEDER_KEYWORD", cfg.Keyword)
	cfg.StartYear = getenvIntDefault("FEEDER_START_YEAR", cfg.StartYear)
	cfg.EndYear = getenvIntDefault("FEEDER_END_YEAR", cfg.EndYear)
	cfg.LoadFactor = getenvFloatDefault("FEEDER_LOAD_FACTOR", cfg.LoadFactor)
	cfg.RecordsTable = getenvDefault("FEEDER_RECORDS_TABLE", cfg.RecordsTable)
	cfg.Output.XLSXPath = getenvDefault("FEEDER_OUTPUT_XLSX", cfg.Output.XLSXPath)
	cfg.Output.PDFPath = getenvDefault("FEEDER_OUTPUT_PDF", cfg.Output.PDFPath)
	cfg.Kafka.Brokers = getenvDefault("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getenvDefault("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.MetricsTextfile = getenvDefault("METRICS_TEXTFILE", cfg.MetricsTextfile)

	cfg.ReportTables = cfg.ReportTables.WithDefaults()
	return cfg, nil
}

// Validate checks the fields a run needs.
func (c Config) Validate(dryRun, skipIngest bool) error {
	if !dryRun && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if !skipIngest && c.InputPath == "" {
		return errors.New("config: input path is required")
	}
	if c.StartYear > c.EndYear {
		return errors.New("config: start_year after end_year")
	}
	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		return errors.New("config: kafka topic required when brokers are set")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
