package memory

import (
	"context"
	"sync"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
)

// QueryDirectory is an in-memory query.Oracle.
type QueryDirectory struct {
	mu      sync.RWMutex
	queries map[string]query.Query
}

// NewQueryDirectory creates a directory seeded with queries.
func NewQueryDirectory(queries ...query.Query) *QueryDirectory {
	d := &QueryDirectory{queries: make(map[string]query.Query, len(queries))}
	for _, q := range queries {
		d.queries[q.ID] = q
	}
	return d
}

// Put adds or replaces a query.
func (d *QueryDirectory) Put(q query.Query) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries[q.ID] = q
}

// GetQuery implements query.Oracle.
func (d *QueryDirectory) GetQuery(ctx context.Context, queryID string) (*query.Query, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	q, ok := d.queries[queryID]
	if !ok {
		return nil, query.ErrQueryNotFound
	}
	return &q, nil
}

var _ query.Oracle = (*QueryDirectory)(nil)
