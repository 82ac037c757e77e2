package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics installs a manual reader and returns it with fresh instruments.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *Metrics) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	m := NewMetrics(DefaultMetricsConfig())
	if m.Error() != nil {
		t.Fatalf("failed to create metrics: %v", m.Error())
	}
	return reader, m
}

func collectSum(t *testing.T, reader *metric.ManualReader, name string) (int64, []metricdata.DataPoint[int64]) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, sum.DataPoints
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0, nil
}

func TestMetrics_RecordTransition(t *testing.T) {
	reader, m := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	m.RecordTransition(ctx, "proposal-in-draft", "proposal-sent", "proposal-sent", 3*time.Millisecond)
	m.RecordTransition(ctx, "proposal-sent", "proposal-viewed", "proposal-viewed", time.Millisecond)

	total, points := collectSum(t, reader, "tracker.transitions")
	if total != 2 {
		t.Errorf("transitions = %d, want 2", total)
	}
	if len(points) != 2 {
		t.Errorf("data points = %d, want one per attribute set", len(points))
	}

	v, ok := points[0].Attributes.Value(attribute.Key("trigger"))
	if !ok || v.AsString() == "" {
		t.Error("trigger attribute missing")
	}
}

func TestMetrics_RecordFailuresAndSweeps(t *testing.T) {
	reader, m := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	m.RecordTransitionFailure(ctx, "guard-not-satisfied", "follow-up-due")
	m.RecordSinkFailure(ctx, 3)
	m.RecordFollowUpDue(ctx, "proposal-sent", 4)
	m.RecordFollowUpDue(ctx, "proposal-sent", 0)

	if total, _ := collectSum(t, reader, "tracker.transition.failures"); total != 1 {
		t.Errorf("failures = %d, want 1", total)
	}
	if total, _ := collectSum(t, reader, "tracker.sink.failures"); total != 3 {
		t.Errorf("sink failures = %d, want 3", total)
	}
	if total, _ := collectSum(t, reader, "tracker.followup.due"); total != 4 {
		t.Errorf("follow-up due = %d, want 4", total)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition(context.Background(), "a", "b", "c", 0)
	m.RecordTransitionFailure(context.Background(), "a", "b")
	m.RecordSinkFailure(context.Background(), 1)
	m.RecordFollowUpDue(context.Background(), "a", 1)
}
