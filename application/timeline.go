package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// ErrNoEvents is returned when a query has no workflow events.
var ErrNoEvents = errors.New("no workflow events")

// Replay reads back a query's workflow log.
type Replay struct {
	log   workflow.Log
	rules *tracking.RuleTable
}

// NewReplay creates a replay over log. A nil rule table selects the
// default rules.
func NewReplay(log workflow.Log, rules *tracking.RuleTable) *Replay {
	if rules == nil {
		rules = tracking.DefaultRuleTable()
	}
	return &Replay{log: log, rules: rules}
}

// Timeline loads every event of a query.
func (r *Replay) Timeline(ctx context.Context, queryID string) (*Timeline, error) {
	events, err := r.log.LoadEvents(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w for query %s", ErrNoEvents, queryID)
	}
	return &Timeline{QueryID: queryID, events: events, rules: r.rules}, nil
}

// Transition is one status change read from the log.
type Transition struct {
	EventID    string           `json:"eventId"`
	ProposalID string           `json:"proposalId"`
	From       tracking.State   `json:"from"`
	To         tracking.State   `json:"to"`
	Trigger    tracking.Trigger `json:"trigger"`
	At         time.Time        `json:"at"`
}

// Timeline is the ordered workflow history of one query.
type Timeline struct {
	QueryID string
	events  []workflow.Event
	rules   *tracking.RuleTable
}

// Events returns the events in append order.
func (t *Timeline) Events() []workflow.Event {
	out := make([]workflow.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of events.
func (t *Timeline) Len() int {
	return len(t.events)
}

// Duration returns the time between the first and last event.
func (t *Timeline) Duration() time.Duration {
	if len(t.events) < 2 {
		return 0
	}
	return t.events[len(t.events)-1].Timestamp.Sub(t.events[0].Timestamp)
}

// EventsInRange returns events with start <= timestamp < end.
func (t *Timeline) EventsInRange(start, end time.Time) []workflow.Event {
	var out []workflow.Event
	for _, e := range t.events {
		if !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			out = append(out, e)
		}
	}
	return out
}

// Transitions returns the status changes, optionally restricted to one
// proposal.
func (t *Timeline) Transitions(proposalID string) []Transition {
	var out []Transition
	for _, e := range t.events {
		if e.Type != workflow.TypeStatusChanged {
			continue
		}
		if proposalID != "" && e.ProposalID != proposalID {
			continue
		}
		trigger, _ := e.Metadata[workflow.MetaTrigger].(string)
		out = append(out, Transition{
			EventID:    e.ID,
			ProposalID: e.ProposalID,
			From:       e.PreviousStatus(),
			To:         e.NewStatus(),
			Trigger:    tracking.Trigger(trigger),
			At:         e.Timestamp,
		})
	}
	return out
}

// Verify checks that every recorded transition is allowed by the rule
// table and that each proposal's transitions chain: a transition starts
// where the previous one of the same proposal ended. The first transition
// of a proposal may start from a pseudo-state.
func (t *Timeline) Verify() error {
	last := make(map[string]tracking.State)
	var errs []error

	for _, tr := range t.Transitions("") {
		if !t.allowed(tr) {
			errs = append(errs, fmt.Errorf("event %s: %s --%s--> %s is not a declared rule",
				tr.EventID, tr.From, tr.Trigger, tr.To))
		}
		if prev, ok := last[tr.ProposalID]; ok && prev != tr.From {
			errs = append(errs, fmt.Errorf("event %s: proposal %s left %s but was in %s",
				tr.EventID, tr.ProposalID, tr.From, prev))
		}
		last[tr.ProposalID] = tr.To
	}

	return errors.Join(errs...)
}

func (t *Timeline) allowed(tr Transition) bool {
	for _, r := range t.rules.Candidates(tr.From, tr.Trigger) {
		if r.To == tr.To {
			return true
		}
	}
	return false
}
