package workflow

import "context"

// Sink receives workflow events. It is append-only.
type Sink interface {
	// Append delivers one or more events in order.
	Append(ctx context.Context, events ...Event) error
}

// Log is a sink that can also be read back.
type Log interface {
	Sink

	// LoadEvents returns every event of a query in append order.
	LoadEvents(ctx context.Context, queryID string) ([]Event, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, events ...Event) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, events ...Event) error {
	return f(ctx, events...)
}

// Discard is a sink that drops every event.
var Discard Sink = SinkFunc(func(context.Context, ...Event) error { return nil })
