// Package telemetry provides OpenTelemetry metrics for the tracker.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes attached to all measurements.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/wouldcart/Triplexa2-sub014",
		MeterVersion: "1.0.0",
	}
}

// Metrics holds the tracker's metric instruments.
type Metrics struct {
	meter metric.Meter
	attrs []attribute.KeyValue

	transitions        metric.Int64Counter
	transitionFailures metric.Int64Counter
	sinkFailures       metric.Int64Counter
	followUpDue        metric.Int64Counter
	transitionDuration metric.Float64Histogram

	initErr error
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}

	meter := otel.GetMeterProvider().Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	m := &Metrics{meter: meter, attrs: config.Attributes}
	m.initErr = m.initInstruments()
	return m
}

func (m *Metrics) initInstruments() error {
	var err error

	m.transitions, err = m.meter.Int64Counter(
		"tracker.transitions",
		metric.WithDescription("Number of applied proposal status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	m.transitionFailures, err = m.meter.Int64Counter(
		"tracker.transition.failures",
		metric.WithDescription("Number of rejected proposal status transitions"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	m.sinkFailures, err = m.meter.Int64Counter(
		"tracker.sink.failures",
		metric.WithDescription("Number of workflow events the sink failed to accept"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	m.followUpDue, err = m.meter.Int64Counter(
		"tracker.followup.due",
		metric.WithDescription("Number of proposals found due for follow-up"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return err
	}

	m.transitionDuration, err = m.meter.Float64Histogram(
		"tracker.transition.duration",
		metric.WithDescription("Duration of transition execution"),
		metric.WithUnit("ms"),
	)
	return err
}

// Error returns any error from instrument creation.
func (m *Metrics) Error() error {
	return m.initErr
}

func (m *Metrics) with(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append(append([]attribute.KeyValue{}, m.attrs...), attrs...)...)
}

// RecordTransition records an applied transition and its duration.
func (m *Metrics) RecordTransition(ctx context.Context, from, to, trigger string, duration time.Duration) {
	if m == nil || m.initErr != nil {
		return
	}
	m.transitions.Add(ctx, 1, m.with(
		attribute.String("status.from", from),
		attribute.String("status.to", to),
		attribute.String("trigger", trigger),
	))
	m.transitionDuration.Record(ctx, float64(duration.Milliseconds()), m.with(
		attribute.String("trigger", trigger),
	))
}

// RecordTransitionFailure records a rejected transition.
func (m *Metrics) RecordTransitionFailure(ctx context.Context, reason, trigger string) {
	if m == nil || m.initErr != nil {
		return
	}
	m.transitionFailures.Add(ctx, 1, m.with(
		attribute.String("reason", reason),
		attribute.String("trigger", trigger),
	))
}

// RecordSinkFailure records events the workflow sink dropped.
func (m *Metrics) RecordSinkFailure(ctx context.Context, events int) {
	if m == nil || m.initErr != nil {
		return
	}
	m.sinkFailures.Add(ctx, int64(events), m.with())
}

// RecordFollowUpDue records proposals found due by a sweep.
func (m *Metrics) RecordFollowUpDue(ctx context.Context, status string, count int) {
	if m == nil || m.initErr != nil || count == 0 {
		return
	}
	m.followUpDue.Add(ctx, int64(count), m.with(attribute.String("status", status)))
}
