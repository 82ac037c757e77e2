// Package resilience protects workflow sinks with fortify retry and
// circuit breaking.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// SinkConfig configures the resilient sink.
type SinkConfig struct {
	// MaxConcurrent limits concurrent deliveries.
	MaxConcurrent int

	// BreakerThreshold is the number of consecutive failed deliveries
	// before the circuit opens.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts per delivery.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between attempts.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64
}

// DefaultSinkConfig returns a configuration with sensible defaults.
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		MaxConcurrent:          4,
		BreakerThreshold:       5,
		BreakerTimeout:         30 * time.Second,
		RetryMaxAttempts:       3,
		RetryInitialDelay:      100 * time.Millisecond,
		RetryBackoffMultiplier: 2.0,
	}
}

// Option configures the resilient sink.
type Option func(*SinkConfig)

// WithMaxConcurrent sets the maximum concurrent deliveries.
func WithMaxConcurrent(n int) Option {
	return func(c *SinkConfig) {
		c.MaxConcurrent = n
	}
}

// WithBreakerThreshold sets the failure threshold for the circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *SinkConfig) {
		c.BreakerThreshold = n
	}
}

// WithBreakerTimeout sets the circuit breaker open duration.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *SinkConfig) {
		c.BreakerTimeout = d
	}
}

// WithRetryAttempts sets the maximum delivery attempts.
func WithRetryAttempts(n int) Option {
	return func(c *SinkConfig) {
		c.RetryMaxAttempts = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *SinkConfig) {
		c.RetryInitialDelay = d
	}
}

// Sink wraps another sink with bulkhead, circuit breaker and retry.
// Composition order: Bulkhead → Circuit Breaker → Retry.
type Sink struct {
	next     workflow.Sink
	bulkhead bulkhead.Bulkhead[struct{}]
	breaker  circuitbreaker.CircuitBreaker[struct{}]
	retry    retry.Retry[struct{}]
}

// NewSink creates a resilient sink in front of next.
func NewSink(next workflow.Sink, opts ...Option) *Sink {
	config := DefaultSinkConfig()
	for _, opt := range opts {
		opt(&config)
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	threshold := config.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.RetryBackoffMultiplier <= 0 {
		config.RetryBackoffMultiplier = 2.0
	}

	return &Sink{
		next: next,
		bulkhead: bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[struct{}](retry.Config{
			MaxAttempts:        config.RetryMaxAttempts,
			InitialDelay:       config.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         config.RetryBackoffMultiplier,
			NonRetryableErrors: []error{workflow.ErrSinkClosed, workflow.ErrInvalidEvent},
		}),
	}
}

// Append implements workflow.Sink. Invalid events fail before any
// delivery attempt. Delivery failures are reported as ErrSinkUnavailable.
func (s *Sink) Append(ctx context.Context, events ...workflow.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	_, err := s.bulkhead.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return s.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
			return s.retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.next.Append(ctx, events...)
			})
		})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, workflow.ErrSinkClosed) || errors.Is(err, workflow.ErrSinkUnavailable) {
		return err
	}
	return errors.Join(workflow.ErrSinkUnavailable, err)
}

// BreakerState returns the circuit breaker state name.
func (s *Sink) BreakerState() string {
	return s.breaker.State().String()
}

var _ workflow.Sink = (*Sink)(nil)
