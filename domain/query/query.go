// Package query models the enclosing sales query a proposal belongs to.
// The tracker only reads it, to decide whether a fresh proposal enters the
// lifecycle right away.
package query

import (
	"context"
	"errors"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// ErrQueryNotFound is returned when the oracle has no such query.
var ErrQueryNotFound = errors.New("query not found")

// Status is the lifecycle status of a query.
type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in-progress"
	StatusConverted  Status = "converted"
	StatusLost       Status = "lost"
	StatusCancelled  Status = "cancelled"
)

// Query is the part of a sales query the tracker needs.
type Query struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// EntryState returns the pseudo-state a proposal of this query leaves on
// its first transition. Only assigned and in-progress queries have one.
func (q Query) EntryState() (tracking.State, bool) {
	switch q.Status {
	case StatusAssigned:
		return tracking.StateAssigned, true
	case StatusInProgress:
		return tracking.StateInProgress, true
	default:
		return "", false
	}
}

// Oracle looks up queries.
type Oracle interface {
	// GetQuery returns the query or ErrQueryNotFound.
	GetQuery(ctx context.Context, queryID string) (*Query, error)
}
