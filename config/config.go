// Package config loads the application configuration from YAML or JSON files with
// environment overrides, and opens the configured postgres and redis connections.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/logging"
)

// Environment variables overriding file values.
const (
	EnvLogLevel    = logging.EnvLogLevel
	EnvDatabaseDSN = "DATABASE_DSN"
	EnvRedisAddr   = "REDIS_ADDR"
)

// Telemetry exporters.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverPGX    = "pgx"
	DriverSQL    = "sql"
	DriverSQLX   = "sqlx"
)

var (
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrUnsupportedExtension   = errors.New("unsupported config file extension")
	ErrUnknownDriver          = errors.New("unknown storage driver")
	ErrMissingDSN             = errors.New("storage driver requires a dsn")
	ErrEmptyEventTable        = errors.New("event table must not be empty")
	ErrNegativeRedisMaxLen    = errors.New("redis max length must not be negative")
	ErrEmptyRedisStream       = errors.New("redis stream must not be empty")
	ErrInvalidRetryAttempts   = errors.New("retry max attempts must be positive")
	ErrNegativeRetryBaseDelay = errors.New("retry base delay must not be negative")
	ErrUnknownExporter        = errors.New("unknown telemetry exporter")
	ErrMissingOTLPEndpoint    = errors.New("otlp exporter requires an endpoint")
	ErrEmptyServiceName       = errors.New("observability service name must not be empty")
)

// Config is the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Retry   RetryConfig   `yaml:"retry" json:"retry"`

	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ObservabilityConfig enables OpenTelemetry traces, metrics and logs. The stdout exporter
// writes JSON lines next to the application log, otlp sends them to a collector via gRPC.
type ObservabilityConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Exporter    string `yaml:"exporter" json:"exporter"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	ServiceName string `yaml:"serviceName" json:"serviceName"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"`
	Component string `yaml:"component" json:"component"`
}

// StorageConfig selects the repositories and the event persister.
type StorageConfig struct {
	Driver     string `yaml:"driver" json:"driver"`
	DSN        string `yaml:"dsn" json:"dsn"`
	EventTable string `yaml:"eventTable" json:"eventTable"`
}

// RedisConfig enables publishing domain events to a redis stream when Addr is set.
type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	Stream string `yaml:"stream" json:"stream"`
	MaxLen int64  `yaml:"maxLen" json:"maxLen"`

	// PerAggregateType appends ":<aggregate type>" to Stream.
	PerAggregateType bool `yaml:"perAggregateType" json:"perAggregateType"`
}

// RetryConfig is the retry policy of transactional commands.
type RetryConfig struct {
	MaxAttempts     int `yaml:"maxAttempts" json:"maxAttempts"`
	BaseDelayMillis int `yaml:"baseDelayMillis" json:"baseDelayMillis"`
}

// Enabled reports whether events are published to redis.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Default returns an in-memory configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:     "info",
			Format:    logging.FormatJSON,
			Component: "library",
		},
		Storage: StorageConfig{
			Driver:     DriverMemory,
			EventTable: "domain_events",
		},
		Redis: RedisConfig{
			Stream: "domain-events",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			BaseDelayMillis: 10,
		},
		Observability: ObservabilityConfig{
			Exporter:    ExporterStdout,
			ServiceName: "librarian",
		},
	}
}

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)

	case ".json":
		return FromJSON(data)

	default:
		return Config{}, errors.Join(ErrUnsupportedExtension, errors.New(ext))
	}
}

// FromYAML parses YAML data on top of Default.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	return cfg, nil
}

// FromJSON parses JSON data on top of Default.
func FromJSON(data []byte) (Config, error) {
	cfg := Default()
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}

	return cfg, nil
}

// WithEnv returns a copy of c with LOG_LEVEL, DATABASE_DSN and REDIS_ADDR applied.
// lookup is usually os.LookupEnv.
func (c Config) WithEnv(lookup func(string) (string, bool)) Config {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}

	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		c.Storage.DSN = v
	}

	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Redis.Addr = v
	}

	return c
}

// Validate checks c and returns all problems joined with ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err)
	}

	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		problems = append(problems, errors.Join(logging.ErrUnknownFormat, errors.New(c.Log.Format)))
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPGX, DriverSQL, DriverSQLX:
		if c.Storage.DSN == "" {
			problems = append(problems, errors.Join(ErrMissingDSN, errors.New(c.Storage.Driver)))
		}
	default:
		problems = append(problems, errors.Join(ErrUnknownDriver, errors.New(c.Storage.Driver)))
	}

	if c.Storage.EventTable == "" {
		problems = append(problems, ErrEmptyEventTable)
	}

	if c.Redis.Enabled() && c.Redis.Stream == "" {
		problems = append(problems, ErrEmptyRedisStream)
	}

	if c.Redis.MaxLen < 0 {
		problems = append(problems, ErrNegativeRedisMaxLen)
	}

	if c.Retry.MaxAttempts <= 0 {
		problems = append(problems, ErrInvalidRetryAttempts)
	}

	if c.Retry.BaseDelayMillis < 0 {
		problems = append(problems, ErrNegativeRetryBaseDelay)
	}

	if c.Observability.Enabled {
		problems = append(problems, c.Observability.validate()...)
	}

	if len(problems) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrInvalidConfig}, problems...)...)
}

func (c ObservabilityConfig) validate() []error {
	var problems []error

	switch c.Exporter {
	case ExporterStdout:
	case ExporterOTLP:
		if c.Endpoint == "" {
			problems = append(problems, ErrMissingOTLPEndpoint)
		}
	default:
		problems = append(problems, errors.Join(ErrUnknownExporter, errors.New(c.Exporter)))
	}

	if c.ServiceName == "" {
		problems = append(problems, ErrEmptyServiceName)
	}

	return problems
}
