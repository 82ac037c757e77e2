// Package event provides workflow event delivery: buffering and NATS
// transport.
package event

import (
	"context"
	"sync"

	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// Publisher buffers workflow events in front of another sink.
type Publisher struct {
	sink    workflow.Sink
	buffer  []workflow.Event
	bufSize int
	closed  bool
	mu      sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize sets the event buffer size. Zero delivers immediately.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(sink workflow.Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make([]workflow.Event, 0, p.bufSize)
	}
	return p
}

// Append implements workflow.Sink.
func (p *Publisher) Append(ctx context.Context, events ...workflow.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return workflow.ErrSinkClosed
	}

	if p.bufSize == 0 {
		return p.sink.Append(ctx, events...)
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Flush delivers all buffered events.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// flush must be called with the lock held. Events stay buffered when the
// sink fails.
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	if err := p.sink.Append(ctx, p.buffer...); err != nil {
		return err
	}

	p.buffer = p.buffer[:0]
	return nil
}

// Close flushes remaining events. Later appends fail with ErrSinkClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.flush(context.Background())
}

var _ workflow.Sink = (*Publisher)(nil)
