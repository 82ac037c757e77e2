package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// TrackingStore is a SQLite-backed implementation of tracking.Store.
// Records are stored as JSON with the query id, status and creation time
// in indexed columns.
type TrackingStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewTrackingStore opens the database and creates a store over it.
func NewTrackingStore(cfg Config, opts ...Option) (*TrackingStore, error) {
	db, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &TrackingStore{db: db, ownsDB: true}, nil
}

// NewTrackingStoreFromDB creates a store from an existing database
// connection and migrates it.
func NewTrackingStoreFromDB(db *sql.DB) (*TrackingStore, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &TrackingStore{db: db}, nil
}

// Save persists a new record.
func (s *TrackingStore) Save(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" || r.QueryID == "" {
		return tracking.ErrInvalidRecord
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO proposal_tracking (proposal_id, query_id, current_status, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ProposalID, r.QueryID, string(r.CurrentStatus), data,
		r.CreatedAt.UnixNano(), r.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tracking.ErrRecordExists
		}
		return err
	}
	return nil
}

// Get retrieves a record by proposal id.
func (s *TrackingStore) Get(ctx context.Context, proposalID string) (*tracking.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM proposal_tracking WHERE proposal_id = ?", proposalID)
	return scanRecord(row)
}

// Update replaces an existing record.
func (s *TrackingStore) Update(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" {
		return tracking.ErrInvalidRecord
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE proposal_tracking SET current_status = ?, data = ?, updated_at = ?
		 WHERE proposal_id = ? AND query_id = ?`,
		string(r.CurrentStatus), data, r.UpdatedAt.UnixNano(), r.ProposalID, r.QueryID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tracking.ErrRecordNotFound
	}
	return nil
}

// FindByQueryID returns the earliest created record of a query.
func (s *TrackingStore) FindByQueryID(ctx context.Context, queryID string) (*tracking.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM proposal_tracking WHERE query_id = ?
		 ORDER BY created_at, proposal_id LIMIT 1`, queryID)
	return scanRecord(row)
}

// List returns records matching the filter, oldest first.
func (s *TrackingStore) List(ctx context.Context, filter tracking.ListFilter) ([]*tracking.Record, error) {
	query := "SELECT data FROM proposal_tracking"
	var where []string
	var args []any

	if filter.QueryID != "" {
		where = append(where, "query_id = ?")
		args = append(args, filter.QueryID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "current_status IN ("+strings.Join(marks, ", ")+")")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, proposal_id"

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*tracking.Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		r, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database if the store opened it.
func (s *TrackingStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*tracking.Record, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracking.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func decodeRecord(data []byte) (*tracking.Record, error) {
	var r tracking.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ tracking.Store = (*TrackingStore)(nil)
