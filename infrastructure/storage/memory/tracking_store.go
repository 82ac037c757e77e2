// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sync"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// TrackingStore is an in-memory implementation of tracking.Store.
type TrackingStore struct {
	mu      sync.RWMutex
	records map[string]*tracking.Record
	// byQuery indexes proposal ids by query id.
	byQuery map[string][]string
}

// NewTrackingStore creates a new in-memory tracking store.
func NewTrackingStore() *TrackingStore {
	return &TrackingStore{
		records: make(map[string]*tracking.Record),
		byQuery: make(map[string][]string),
	}
}

// Save persists a new record.
func (s *TrackingStore) Save(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" || r.QueryID == "" {
		return tracking.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ProposalID]; exists {
		return tracking.ErrRecordExists
	}

	s.records[r.ProposalID] = r.Clone()
	s.byQuery[r.QueryID] = append(s.byQuery[r.QueryID], r.ProposalID)
	return nil
}

// Get retrieves a record by proposal id.
func (s *TrackingStore) Get(ctx context.Context, proposalID string) (*tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[proposalID]
	if !exists {
		return nil, tracking.ErrRecordNotFound
	}
	return r.Clone(), nil
}

// Update replaces an existing record. The query id of a record never
// changes, so the index is left alone.
func (s *TrackingStore) Update(ctx context.Context, r *tracking.Record) error {
	if r == nil || r.ProposalID == "" {
		return tracking.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[r.ProposalID]
	if !exists {
		return tracking.ErrRecordNotFound
	}
	if existing.QueryID != r.QueryID {
		return tracking.ErrInvalidRecord
	}

	s.records[r.ProposalID] = r.Clone()
	return nil
}

// FindByQueryID returns the earliest created record of a query.
func (s *TrackingStore) FindByQueryID(ctx context.Context, queryID string) (*tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byQuery[queryID]
	if len(ids) == 0 {
		return nil, tracking.ErrRecordNotFound
	}

	candidates := make([]*tracking.Record, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, s.records[id])
	}
	tracking.SortByCreation(candidates)

	return candidates[0].Clone(), nil
}

// List returns records matching the filter, oldest first.
func (s *TrackingStore) List(ctx context.Context, filter tracking.ListFilter) ([]*tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*tracking.Record, 0)
	for _, r := range s.records {
		if filter.Matches(r) {
			results = append(results, r.Clone())
		}
	}

	tracking.SortByCreation(results)
	return filter.Paginate(results), nil
}

// Len returns the number of stored records.
func (s *TrackingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ tracking.Store = (*TrackingStore)(nil)
