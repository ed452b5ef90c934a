// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultConfigFile is read when no explicit config path is given
	DefaultConfigFile = "salesetl.yaml"
	// EnvPrefix prefixes every environment override; "__" separates nested keys
	EnvPrefix = "SALESETL_"
)

// Config represents the application configuration
type Config struct {
	// Database connections
	Source      SourceConfig   `koanf:"source"`
	Destination PostgresConfig `koanf:"destination"`

	// Remote sources
	API APIConfig `koanf:"api"`
	S3  S3Config  `koanf:"s3"`
	PDF PDFConfig `koanf:"pdf"`

	Pipeline PipelineConfig `koanf:"pipeline"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Schedule ScheduleConfig `koanf:"schedule"`

	// Logging
	Log LogConfig `koanf:"log"`
}

// APIConfig holds the store API endpoints
type APIConfig struct {
	NumberStoresURL string        `koanf:"number_stores_url"`
	StoreDetailsURL string        `koanf:"store_details_url"` // contains {store_number}
	Key             string        `koanf:"key"`
	Timeout         time.Duration `koanf:"timeout"`
	RequestsPerSec  float64       `koanf:"requests_per_sec"`
}

// S3Config holds object storage settings. Empty keys fall back to the
// default AWS credential chain.
type S3Config struct {
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
	// Anonymous skips request signing, for public buckets
	Anonymous       bool   `koanf:"anonymous"`
	ProductsURI     string `koanf:"products_uri"`
	DateEventsURI   string `koanf:"date_events_uri"`
}

// PDFConfig holds the card details document location
type PDFConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// PipelineConfig controls what runs and how rows are written
type PipelineConfig struct {
	BatchSize int         `koanf:"batch_size"`
	Verify    bool        `koanf:"verify"`
	Jobs      []JobConfig `koanf:"jobs"`
}

// JobConfig describes one extract, clean and load job.
// An empty job list means the built-in job set.
type JobConfig struct {
	Name        string `koanf:"name"`
	Entity      string `koanf:"entity"`
	Kind        string `koanf:"kind"` // rds, pdf, api or s3
	Table       string `koanf:"table"`
	URL         string `koanf:"url"`
	URI         string `koanf:"uri"`
	Format      string `koanf:"format"`
	Destination string `koanf:"destination"`
}

// MetricsConfig holds Pushgateway settings; an empty URL disables pushing
type MetricsConfig struct {
	PushURL string `koanf:"push_url"`
	JobName string `koanf:"job_name"`
}

// ScheduleConfig holds the cron spec used by the schedule command
type ScheduleConfig struct {
	Cron string `koanf:"cron"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// defaults mirrors the public endpoints of the sales data sources
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"source.driver":                     DriverPostgres,
		"source.postgres.port":              5432,
		"source.postgres.sslmode":           "disable",
		"source.postgres.max_open_conns":    5,
		"source.postgres.max_idle_conns":    2,
		"source.postgres.conn_max_lifetime": "30m",
		"source.snowflake.max_open_conns":   5,
		"source.snowflake.max_idle_conns":   2,
		"source.snowflake.query_timeout":    "5m",

		"destination.host":               "localhost",
		"destination.port":               5432,
		"destination.sslmode":            "disable",
		"destination.schema":             "public",
		"destination.max_open_conns":     25,
		"destination.max_idle_conns":     10,
		"destination.conn_max_lifetime":  "30m",
		"destination.conn_max_idle_time": "10m",
		"destination.statement_timeout":  "5m",

		"api.number_stores_url": "https://aqj7u5id95.execute-api.eu-west-1.amazonaws.com/prod/number_stores",
		"api.store_details_url": "https://aqj7u5id95.execute-api.eu-west-1.amazonaws.com/prod/store_details/{store_number}",
		"api.timeout":           "30s",
		"api.requests_per_sec":  10.0,

		"s3.region":          "eu-west-1",
		"s3.anonymous":       false,
		"s3.products_uri":    "s3://data-handling-public/products.csv",
		"s3.date_events_uri": "https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json",

		"pdf.url":     "https://data-handling-public.s3.eu-west-1.amazonaws.com/card_details.pdf",
		"pdf.timeout": "2m",

		"pipeline.batch_size": 1000,
		"pipeline.verify":     true,

		"metrics.job_name": "salesetl",
		"schedule.cron":    "0 2 * * *",

		"log.level":  "info",
		"log.format": "json",
	}
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// SALESETL_ environment variables, in increasing precedence. A .env file in
// the working directory is loaded into the environment first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// SALESETL_DESTINATION__HOST -> destination.host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Source.Postgres.ApplyCredentialsFile(); err != nil {
		return nil, err
	}
	if err := cfg.Destination.ApplyCredentialsFile(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if err := c.Destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if c.Pipeline.BatchSize <= 0 {
		return errors.New("pipeline batch size must be positive")
	}

	if c.API.RequestsPerSec < 0 {
		return errors.New("api requests per second cannot be negative")
	}

	if c.API.StoreDetailsURL != "" && !strings.Contains(c.API.StoreDetailsURL, "{store_number}") {
		return errors.New("api store details url must contain {store_number}")
	}

	for i, job := range c.Pipeline.Jobs {
		if job.Entity == "" || job.Kind == "" || job.Destination == "" {
			return fmt.Errorf("pipeline job %d (%s): entity, kind and destination are required", i, job.Name)
		}
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}

	return nil
}
