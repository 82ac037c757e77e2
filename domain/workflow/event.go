// Package workflow defines the workflow events the tracker emits and the
// sinks that receive them.
package workflow

import (
	"fmt"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// Type classifies a workflow event.
type Type string

const (
	// TypeStatusChanged is emitted once per successful transition.
	TypeStatusChanged Type = "status_changed"
)

// AutomatedUser is the user id recorded on events the engine emits.
const AutomatedUser = "automated-system"

// Reserved metadata keys. Caller metadata never overrides them.
const (
	MetaPreviousStatus = "previousStatus"
	MetaNewStatus      = "newStatus"
	MetaTrigger        = "trigger"
	MetaAutomated      = "automated"
)

// Event is one entry of a query's workflow log.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// QueryID is the query the proposal belongs to.
	QueryID string `json:"queryId"`

	// ProposalID is the proposal that changed.
	ProposalID string `json:"proposalId"`

	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`

	// UserID is who caused the event.
	UserID string `json:"userId"`

	// Details is a human readable summary.
	Details string `json:"details"`

	// Metadata carries the transition data and caller metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStatusChanged builds the event for a transition from one status to
// another. Caller metadata is merged first so the reserved keys win.
func NewStatusChanged(id, queryID, proposalID string, from, to tracking.State, trigger tracking.Trigger, metadata map[string]any, now time.Time) Event {
	meta := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaPreviousStatus] = string(from)
	meta[MetaNewStatus] = string(to)
	meta[MetaTrigger] = string(trigger)
	meta[MetaAutomated] = true

	return Event{
		ID:         id,
		Type:       TypeStatusChanged,
		QueryID:    queryID,
		ProposalID: proposalID,
		Timestamp:  now,
		UserID:     AutomatedUser,
		Details:    fmt.Sprintf("Proposal status changed from %s to %s", from, to),
		Metadata:   meta,
	}
}

// Validate checks that the event can be stored.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.QueryID == "" {
		return fmt.Errorf("%w: missing query id", ErrInvalidEvent)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	return nil
}

// PreviousStatus returns the status recorded before the transition.
func (e Event) PreviousStatus() tracking.State {
	s, _ := e.Metadata[MetaPreviousStatus].(string)
	return tracking.State(s)
}

// NewStatus returns the status entered by the transition.
func (e Event) NewStatus() tracking.State {
	s, _ := e.Metadata[MetaNewStatus].(string)
	return tracking.State(s)
}
