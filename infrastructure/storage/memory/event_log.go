package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// EventLog is an in-memory implementation of workflow.Log.
type EventLog struct {
	mu     sync.RWMutex
	events map[string][]workflow.Event // queryID -> events
	total  int
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{
		events: make(map[string][]workflow.Event),
	}
}

// Append stores events in order. Events without an id get one. The batch
// is validated before anything is stored.
func (l *EventLog) Append(ctx context.Context, events ...workflow.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	batch := make([]workflow.Event, len(events))
	for i, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if err := e.Validate(); err != nil {
			return err
		}
		batch[i] = copyEvent(e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range batch {
		l.events[e.QueryID] = append(l.events[e.QueryID], e)
	}
	l.total += len(batch)
	return nil
}

// LoadEvents returns every event of a query in append order.
func (l *EventLog) LoadEvents(ctx context.Context, queryID string) ([]workflow.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.events[queryID]
	result := make([]workflow.Event, len(stored))
	for i, e := range stored {
		result[i] = copyEvent(e)
	}
	return result, nil
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func copyEvent(e workflow.Event) workflow.Event {
	if e.Metadata != nil {
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		e.Metadata = meta
	}
	return e
}

var _ workflow.Log = (*EventLog)(nil)
