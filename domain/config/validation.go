package config

import (
	"fmt"
	"strings"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (e ValidationErrors) Unwrap() error {
	if len(e) == 0 {
		return nil
	}
	return ErrValidationFailed
}

// Validator validates tracker configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *TrackerConfig) ValidationErrors {
	v.errors = nil

	v.validateStorage(config.Storage)
	v.validateEvents(config.Events)
	v.validateFollowUp(config.FollowUp)
	v.validateLogging(config.Logging)
	v.validateTracing(config.Tracing)
	v.validateQueries(config.Queries)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateStorage(s StorageConfig) {
	switch s.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.SQLite.DSN == "" {
			v.addError("storage.sqlite.dsn", "dsn is required for sqlite backend")
		}
	case BackendPostgres:
		if s.Postgres.DSN == "" {
			v.addError("storage.postgres.dsn", "dsn is required for postgres backend")
		}
	case BackendRedis:
		if s.Redis.Address == "" {
			v.addError("storage.redis.address", "address is required for redis backend")
		}
		if s.Redis.DB < 0 {
			v.addError("storage.redis.db", "db must be non-negative")
		}
	case "":
		v.addError("storage.backend", "backend is required")
	default:
		v.addError("storage.backend", fmt.Sprintf("unknown backend: %s", s.Backend))
	}
}

func (v *Validator) validateEvents(e EventsConfig) {
	switch e.Sink {
	case SinkNone, SinkMemory:
	case SinkSQLite:
	case SinkNATS:
		if e.NATS.URL == "" {
			v.addError("events.nats.url", "url is required for nats sink")
		}
	case "":
		v.addError("events.sink", "sink is required")
	default:
		v.addError("events.sink", fmt.Sprintf("unknown sink: %s", e.Sink))
	}

	if e.BufferSize < 0 {
		v.addError("events.buffer_size", "buffer_size must be non-negative")
	}
	if e.Retry.MaxAttempts < 0 {
		v.addError("events.retry.max_attempts", "max_attempts must be non-negative")
	}
	if e.Retry.InitialDelay < 0 {
		v.addError("events.retry.initial_delay", "initial_delay must be non-negative")
	}
	if e.Retry.BreakerThreshold < 0 {
		v.addError("events.retry.breaker_threshold", "breaker_threshold must be non-negative")
	}
}

func (v *Validator) validateFollowUp(f FollowUpConfig) {
	fields := []struct {
		path  string
		value int
	}{
		{"follow_up.sent_after_days", f.SentAfterDays},
		{"follow_up.escalate_after_days", f.EscalateAfterDays},
		{"follow_up.no_response_after_days", f.NoResponseAfterDays},
		{"follow_up.max_follow_ups", f.MaxFollowUps},
	}
	for _, field := range fields {
		if field.value <= 0 {
			v.addError(field.path, "must be positive")
		}
	}
}

func (v *Validator) validateLogging(l LoggingConfig) {
	switch l.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", l.Level))
	}
	switch l.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", l.Format))
	}
}

func (v *Validator) validateTracing(t TracingConfig) {
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case ExporterNoop, ExporterStdout:
	case ExporterOTLP:
		if t.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("unsupported exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample rate must be between 0 and 1")
	}
}

func (v *Validator) validateQueries(queries map[string]string) {
	valid := map[query.Status]bool{
		query.StatusNew: true, query.StatusAssigned: true, query.StatusInProgress: true,
		query.StatusConverted: true, query.StatusLost: true, query.StatusCancelled: true,
	}
	for id, status := range queries {
		if !valid[query.Status(status)] {
			v.addError("queries."+id, fmt.Sprintf("invalid query status: %s", status))
		}
	}
}
