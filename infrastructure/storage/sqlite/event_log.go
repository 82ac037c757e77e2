package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// EventLog is a SQLite-backed implementation of workflow.Log.
type EventLog struct {
	db     *sql.DB
	ownsDB bool
}

// NewEventLog opens the database and creates an event log over it.
func NewEventLog(cfg Config, opts ...Option) (*EventLog, error) {
	db, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &EventLog{db: db, ownsDB: true}, nil
}

// NewEventLogFromDB creates an event log from an existing database
// connection and migrates it.
func NewEventLogFromDB(db *sql.DB) (*EventLog, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &EventLog{db: db}, nil
}

// Append stores events atomically and in order.
func (l *EventLog) Append(ctx context.Context, events ...workflow.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO workflow_events (id, query_id, proposal_id, type, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if err := e.Validate(); err != nil {
			return err
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			e.ID, e.QueryID, e.ProposalID, string(e.Type), e.Timestamp.UnixNano(), data,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadEvents returns every event of a query in append order.
func (l *EventLog) LoadEvents(ctx context.Context, queryID string) ([]workflow.Event, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT data FROM workflow_events WHERE query_id = ? ORDER BY seq", queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]workflow.Event, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e workflow.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database if the log opened it.
func (l *EventLog) Close() error {
	if !l.ownsDB {
		return nil
	}
	return l.db.Close()
}

var _ workflow.Log = (*EventLog)(nil)
