package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// DefaultSubjectPrefix is used when no subject prefix is configured.
const DefaultSubjectPrefix = "tracker.workflow"

// Conn is the subset of *nats.Conn the sink uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

type flusher interface {
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes workflow events as JSON to "<prefix>.<queryId>".
type NATSSink struct {
	conn          Conn
	subjectPrefix string
}

// NewNATSSink creates a sink over an existing connection.
func NewNATSSink(conn Conn, subjectPrefix string) (*NATSSink, error) {
	if conn == nil {
		return nil, errors.New("nats connection is required")
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSSink{conn: conn, subjectPrefix: subjectPrefix}, nil
}

// DialNATS connects to a NATS server.
func DialNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, errors.Join(workflow.ErrSinkUnavailable, err)
	}
	return conn, nil
}

// Subject returns the subject events of a query are published to.
func (s *NATSSink) Subject(queryID string) string {
	return s.subjectPrefix + "." + queryID
}

// Append implements workflow.Sink. Events are validated before any is
// published. Connections that support it are flushed afterwards so
// delivery errors surface here.
func (s *NATSSink) Append(ctx context.Context, events ...workflow.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if err := s.conn.Publish(s.Subject(e.QueryID), data); err != nil {
			return errors.Join(workflow.ErrSinkUnavailable, err)
		}
	}

	if f, ok := s.conn.(flusher); ok && len(events) > 0 {
		if err := f.FlushWithContext(ctx); err != nil {
			return errors.Join(workflow.ErrSinkUnavailable, err)
		}
	}
	return nil
}

var (
	_ workflow.Sink = (*NATSSink)(nil)
	_ Conn          = (*nats.Conn)(nil)
)
