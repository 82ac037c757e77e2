package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// TrackingStore is a PostgreSQL-backed implementation of tracking.Store.
type TrackingStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewTrackingStore creates a new PostgreSQL tracking store.
func NewTrackingStore(pool *pgxpool.Pool, schema string) *TrackingStore {
	if schema == "" {
		schema = "public"
	}
	return &TrackingStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *TrackingStore) tableName() string {
	return fmt.Sprintf("%s.proposal_tracking", s.schema)
}

// EnsureSchema creates the schema and table if they don't exist.
func (s *TrackingStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				proposal_id TEXT PRIMARY KEY,
				query_id TEXT NOT NULL,
				current_status TEXT NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`, s.tableName()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS proposal_tracking_query_idx ON %s (query_id, created_at, proposal_id)`, s.tableName()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS proposal_tracking_status_idx ON %s (current_status)`, s.tableName()),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return s.wrapError(err)
		}
	}
	return nil
}

// Save persists a new record.
func (s *TrackingStore) Save(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" || r.QueryID == "" {
		return tracking.ErrInvalidRecord
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (proposal_id, query_id, current_status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		r.ProposalID, r.QueryID, string(r.CurrentStatus), data, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return tracking.ErrRecordExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a record by proposal id.
func (s *TrackingStore) Get(ctx context.Context, proposalID string) (*tracking.Record, error) {
	if proposalID == "" {
		return nil, tracking.ErrRecordNotFound
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE proposal_id = $1`, s.tableName())
	return s.queryOne(ctx, query, proposalID)
}

// Update replaces an existing record.
func (s *TrackingStore) Update(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" {
		return tracking.ErrInvalidRecord
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET current_status = $1, data = $2, updated_at = $3
		WHERE proposal_id = $4 AND query_id = $5
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query,
		string(r.CurrentStatus), data, r.UpdatedAt, r.ProposalID, r.QueryID)
	if err != nil {
		return s.wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return tracking.ErrRecordNotFound
	}
	return nil
}

// FindByQueryID returns the earliest created record of a query.
func (s *TrackingStore) FindByQueryID(ctx context.Context, queryID string) (*tracking.Record, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s WHERE query_id = $1
		ORDER BY created_at, proposal_id LIMIT 1
	`, s.tableName())
	return s.queryOne(ctx, query, queryID)
}

// List returns records matching the filter, oldest first.
func (s *TrackingStore) List(ctx context.Context, filter tracking.ListFilter) ([]*tracking.Record, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	results := make([]*tracking.Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		r, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, s.wrapError(rows.Err())
}

// buildListQuery constructs the SELECT query for listing records.
func (s *TrackingStore) buildListQuery(filter tracking.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`SELECT data FROM %s %s ORDER BY created_at, proposal_id`,
		s.tableName(), whereClause)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// buildWhereClause constructs the WHERE clause from filter.
func (s *TrackingStore) buildWhereClause(filter tracking.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.QueryID != "" {
		args = append(args, filter.QueryID)
		conditions = append(conditions, fmt.Sprintf("query_id = $%d", len(args)))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("current_status = ANY($%d)", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (s *TrackingStore) queryOne(ctx context.Context, query string, arg string) (*tracking.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tracking.ErrRecordNotFound
		}
		return nil, s.wrapError(err)
	}
	return decodeRecord(data)
}

func decodeRecord(data []byte) (*tracking.Record, error) {
	var r tracking.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &r, nil
}

// wrapError wraps database errors with package errors.
func (s *TrackingStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrOperationTimeout, err)
	}
	return errors.Join(ErrConnectionFailed, err)
}

var _ tracking.Store = (*TrackingStore)(nil)
