package tracking

import (
	"context"
	"sort"
)

// Store persists tracking records. Implementations return copies, so a
// caller mutating a returned record never affects stored state until it
// calls Update.
type Store interface {
	// Save persists a new record. Returns ErrRecordExists for a duplicate
	// proposal id.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by proposal id.
	Get(ctx context.Context, proposalID string) (*Record, error)

	// Update replaces an existing record.
	Update(ctx context.Context, record *Record) error

	// FindByQueryID returns the earliest created record of a query, ties
	// broken by proposal id.
	FindByQueryID(ctx context.Context, queryID string) (*Record, error)

	// List returns records matching the filter, oldest first.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
}

// ListFilter filters record listings.
type ListFilter struct {
	// Statuses restricts results to these current statuses.
	Statuses []State

	// QueryID restricts results to one query.
	QueryID string

	// Limit is the maximum number of results.
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// Matches returns true if record passes the status and query filters.
func (f ListFilter) Matches(record *Record) bool {
	if f.QueryID != "" && record.QueryID != f.QueryID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if record.CurrentStatus == st {
			return true
		}
	}
	return false
}

// Paginate applies Offset and Limit to an ordered slice.
func (f ListFilter) Paginate(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records
}

// SortByCreation orders records by CreatedAt, then proposal id.
func SortByCreation(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ProposalID < records[j].ProposalID
	})
}
