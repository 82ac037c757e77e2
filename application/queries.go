package application

import (
	"context"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// GetTracking returns the tracking record of a proposal.
func (e *Engine) GetTracking(ctx context.Context, proposalID string) (*tracking.Record, error) {
	return e.store.Get(ctx, proposalID)
}

// GetTrackingByQueryID returns the earliest tracked proposal of a query.
func (e *Engine) GetTrackingByQueryID(ctx context.Context, queryID string) (*tracking.Record, error) {
	return e.store.FindByQueryID(ctx, queryID)
}

// ListTracking returns records matching filter.
func (e *Engine) ListTracking(ctx context.Context, filter tracking.ListFilter) ([]*tracking.Record, error) {
	return e.store.List(ctx, filter)
}

// GetProposalsNeedingFollowUp returns records due for follow-up at now.
func (e *Engine) GetProposalsNeedingFollowUp(ctx context.Context, now time.Time) ([]*tracking.Record, error) {
	candidates, err := e.store.List(ctx, tracking.ListFilter{
		Statuses: []tracking.State{tracking.StateSent, tracking.StateFollowUpPending},
	})
	if err != nil {
		return nil, err
	}

	return e.policy.DueRecords(candidates, now), nil
}

// GetProposalStats aggregates every tracked proposal.
func (e *Engine) GetProposalStats(ctx context.Context) (tracking.Stats, error) {
	records, err := e.store.List(ctx, tracking.ListFilter{})
	if err != nil {
		return tracking.Stats{}, err
	}
	return tracking.ComputeStats(records), nil
}
