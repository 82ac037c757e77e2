// Package config provides the domain model of the tracker configuration.
package config

import (
	"strings"
	"time"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Event sinks.
const (
	SinkNone   = "none"
	SinkMemory = "memory"
	SinkSQLite = "sqlite"
	SinkNATS   = "nats"
)

// TrackerConfig is the complete tracker configuration.
type TrackerConfig struct {
	// Name identifies the deployment in logs.
	Name string `json:"name" yaml:"name"`

	// Storage selects where tracking records live.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Events selects where workflow events go.
	Events EventsConfig `json:"events" yaml:"events"`

	// FollowUp holds the detector thresholds.
	FollowUp FollowUpConfig `json:"follow_up" yaml:"follow_up"`

	// Logging configures the logger.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// Queries seeds the in-process query directory with query statuses,
	// keyed by query id.
	Queries map[string]string `json:"queries,omitempty" yaml:"queries,omitempty"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	// Backend is one of memory, sqlite, postgres, redis.
	Backend string `json:"backend" yaml:"backend"`

	SQLite   SQLiteConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	Redis    RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// DSN is the database file path or URI.
	DSN string `json:"dsn" yaml:"dsn"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	// DSN is the connection string.
	DSN string `json:"dsn" yaml:"dsn"`
	// Schema is the schema holding the tracker tables.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// EventsConfig configures the workflow event sink.
type EventsConfig struct {
	// Sink is one of none, memory, sqlite, nats.
	Sink string `json:"sink" yaml:"sink"`

	// BufferSize batches events before delivery when positive.
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`

	NATS  NATSConfig  `json:"nats,omitempty" yaml:"nats,omitempty"`
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL string `json:"url" yaml:"url"`
	// SubjectPrefix is prepended to the query id to form the subject.
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty"`
}

// RetryConfig configures retried delivery. A zero MaxAttempts disables
// the retry and circuit breaker wrapper.
type RetryConfig struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// BreakerThreshold is the consecutive failures that open the circuit.
	BreakerThreshold int `json:"breaker_threshold,omitempty" yaml:"breaker_threshold,omitempty"`
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout Duration `json:"breaker_timeout,omitempty" yaml:"breaker_timeout,omitempty"`
}

// FollowUpConfig holds the detector thresholds in days.
type FollowUpConfig struct {
	SentAfterDays       int `json:"sent_after_days" yaml:"sent_after_days"`
	EscalateAfterDays   int `json:"escalate_after_days" yaml:"escalate_after_days"`
	NoResponseAfterDays int `json:"no_response_after_days" yaml:"no_response_after_days"`
	MaxFollowUps        int `json:"max_follow_ups" yaml:"max_follow_ups"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Trace exporters.
const (
	ExporterNoop   = "noop"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled  bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC endpoint.
	Endpoint   string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Default returns an in-memory configuration with the standard
// follow-up thresholds.
func Default() *TrackerConfig {
	return &TrackerConfig{
		Name:    "tracker",
		Storage: StorageConfig{Backend: BackendMemory},
		Events:  EventsConfig{Sink: SinkMemory},
		FollowUp: FollowUpConfig{
			SentAfterDays:       3,
			EscalateAfterDays:   2,
			NoResponseAfterDays: 4,
			MaxFollowUps:        2,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// ApplyDefaults fills unset fields from Default.
func (c *TrackerConfig) ApplyDefaults() {
	d := Default()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Postgres.Schema == "" {
		c.Storage.Postgres.Schema = "public"
	}
	if c.Events.Sink == "" {
		c.Events.Sink = d.Events.Sink
	}
	if c.Events.NATS.SubjectPrefix == "" {
		c.Events.NATS.SubjectPrefix = "tracker.workflow"
	}
	if c.FollowUp == (FollowUpConfig{}) {
		c.FollowUp = d.FollowUp
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Tracing.Enabled && c.Tracing.Exporter == "" {
		c.Tracing.Exporter = ExporterStdout
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	c.Events.Sink = strings.ToLower(c.Events.Sink)
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := strings.Trim(string(b), `"`)
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
