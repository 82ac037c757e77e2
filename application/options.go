package application

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/lock"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/telemetry"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithStore sets the tracking record store.
func WithStore(s tracking.Store) Option {
	return func(c *EngineConfig) {
		c.Store = s
	}
}

// WithRules replaces the default rule table.
func WithRules(r *tracking.RuleTable) Option {
	return func(c *EngineConfig) {
		c.Rules = r
	}
}

// WithPolicy sets the follow-up detector thresholds.
func WithPolicy(p tracking.FollowUpPolicy) Option {
	return func(c *EngineConfig) {
		c.Policy = p
	}
}

// WithSink sets the workflow event sink.
func WithSink(s workflow.Sink) Option {
	return func(c *EngineConfig) {
		c.Sink = s
	}
}

// WithQueries sets the query status oracle.
func WithQueries(o query.Oracle) Option {
	return func(c *EngineConfig) {
		c.Queries = o
	}
}

// WithLocker sets the per-proposal locker.
func WithLocker(l lock.Locker) Option {
	return func(c *EngineConfig) {
		c.Locker = l
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *EngineConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer used for transition spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *EngineConfig) {
		c.Tracer = t
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *EngineConfig) {
		c.Clock = clock
	}
}

// WithIDFunc sets the workflow event id generator.
func WithIDFunc(fn func() string) Option {
	return func(c *EngineConfig) {
		c.NewID = fn
	}
}

// New creates an engine from options.
func New(opts ...Option) (*Engine, error) {
	var config EngineConfig
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngine(config)
}
