// Package storetest holds behavior tests shared by every tracking.Store
// and workflow.Log implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

// Base is the creation time used by the suites. Stores must keep creation
// order at microsecond precision.
var Base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// NewRecord builds a record created offset after Base.
func NewRecord(t *testing.T, queryID, proposalID string, offset time.Duration) *tracking.Record {
	t.Helper()

	r, err := tracking.NewRecord(queryID, proposalID, Base.Add(offset))
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return r
}

// TrackingStore runs the tracking.Store suite. newStore must return an
// empty store for each call.
func TrackingStore(t *testing.T, newStore func(t *testing.T) tracking.Store) {
	t.Helper()

	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		r := NewRecord(t, "q-1", "p-1", 0)
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Get(ctx, "p-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.QueryID != "q-1" || got.CurrentStatus != tracking.StateDraft {
			t.Errorf("Get() = %+v", got)
		}
		if len(got.StatusHistory) != 1 || got.StatusHistory[0].TriggeredBy != tracking.TriggeredBySystem {
			t.Errorf("history = %+v, want the initialization entry", got.StatusHistory)
		}
		if !got.CreatedAt.Equal(r.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
		}
	})

	t.Run("duplicate save", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Save(ctx, NewRecord(t, "q-1", "p-1", 0)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Save(ctx, NewRecord(t, "q-1", "p-1", 0)); !errors.Is(err, tracking.ErrRecordExists) {
			t.Errorf("second Save() error = %v, want ErrRecordExists", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, tracking.ErrRecordNotFound) {
			t.Errorf("Get() error = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		r := NewRecord(t, "q-1", "p-1", 0)
		if err := store.Save(ctx, r); err != nil {
			t.Fatal(err)
		}

		now := Base.Add(time.Hour)
		r.Apply(tracking.Rule{From: tracking.StateDraft, To: tracking.StateSent, Trigger: tracking.TriggerProposalSent},
			tracking.TriggerProposalSent, now, map[string]any{"method": "email"})
		if err := r.AddPayment(1200.5, tracking.PaymentAdvance, now); err != nil {
			t.Fatal(err)
		}
		if err := store.Update(ctx, r); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := store.Get(ctx, "p-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.CurrentStatus != tracking.StateSent || len(got.StatusHistory) != 2 {
			t.Errorf("Get() = %s with %d entries", got.CurrentStatus, len(got.StatusHistory))
		}
		if got.ProposalSentDate == nil || !got.ProposalSentDate.Equal(now) {
			t.Errorf("ProposalSentDate = %v, want %v", got.ProposalSentDate, now)
		}
		if got.StatusHistory[1].Metadata["method"] != "email" {
			t.Errorf("history metadata = %v", got.StatusHistory[1].Metadata)
		}
		if len(got.PaymentHistory) != 1 || got.PaymentHistory[0].Amount != 1200.5 {
			t.Errorf("PaymentHistory = %+v", got.PaymentHistory)
		}

		missing := NewRecord(t, "q-2", "p-404", 0)
		if err := store.Update(ctx, missing); !errors.Is(err, tracking.ErrRecordNotFound) {
			t.Errorf("Update() missing error = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		r := NewRecord(t, "q-1", "p-1", 0)
		if err := store.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
		r.CurrentStatus = tracking.StateConfirmed

		got, _ := store.Get(ctx, "p-1")
		got.StatusHistory[0].Status = tracking.StateBookingConfirmed

		again, _ := store.Get(ctx, "p-1")
		if again.CurrentStatus != tracking.StateDraft || again.StatusHistory[0].Status != tracking.StateDraft {
			t.Error("stored record was mutated through a caller's pointer")
		}
	})

	t.Run("find by query id is deterministic", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, r := range []*tracking.Record{
			NewRecord(t, "q-1", "p-c", 2*time.Minute),
			NewRecord(t, "q-1", "p-b", time.Minute),
			NewRecord(t, "q-1", "p-a", time.Minute),
			NewRecord(t, "q-2", "p-0", 0),
		} {
			if err := store.Save(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		got, err := store.FindByQueryID(ctx, "q-1")
		if err != nil {
			t.Fatalf("FindByQueryID() error = %v", err)
		}
		if got.ProposalID != "p-a" {
			t.Errorf("FindByQueryID() = %s, want p-a", got.ProposalID)
		}

		if _, err := store.FindByQueryID(ctx, "q-9"); !errors.Is(err, tracking.ErrRecordNotFound) {
			t.Errorf("FindByQueryID() missing error = %v, want ErrRecordNotFound", err)
		}
	})

	t.Run("creation order below a millisecond", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, r := range []*tracking.Record{
			NewRecord(t, "q-1", "p-a", 500*time.Microsecond),
			NewRecord(t, "q-1", "p-b", 0),
		} {
			if err := store.Save(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		got, err := store.FindByQueryID(ctx, "q-1")
		if err != nil {
			t.Fatalf("FindByQueryID() error = %v", err)
		}
		if got.ProposalID != "p-b" {
			t.Errorf("FindByQueryID() = %s, want p-b", got.ProposalID)
		}

		all, err := store.List(ctx, tracking.ListFilter{QueryID: "q-1"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 2 || all[0].ProposalID != "p-b" || all[1].ProposalID != "p-a" {
			t.Errorf("List() = %v, want [p-b p-a]", ids(all))
		}
	})

	t.Run("list filters and paginates", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		statuses := []tracking.State{tracking.StateDraft, tracking.StateSent, tracking.StateSent, tracking.StateViewed}
		for i, st := range statuses {
			r := NewRecord(t, "q-1", string(rune('a'+i)), time.Duration(i)*time.Minute)
			if err := store.Save(ctx, r); err != nil {
				t.Fatal(err)
			}
			if st != tracking.StateDraft {
				r.CurrentStatus = st
				if err := store.Update(ctx, r); err != nil {
					t.Fatal(err)
				}
			}
		}
		if err := store.Save(ctx, NewRecord(t, "q-2", "z", 10*time.Minute)); err != nil {
			t.Fatal(err)
		}

		all, err := store.List(ctx, tracking.ListFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 5 || all[0].ProposalID != "a" || all[4].ProposalID != "z" {
			t.Errorf("List() = %v, want 5 records oldest first", ids(all))
		}

		sent, _ := store.List(ctx, tracking.ListFilter{Statuses: []tracking.State{tracking.StateSent}})
		if len(sent) != 2 {
			t.Errorf("List(sent) = %v, want 2", ids(sent))
		}

		q2, _ := store.List(ctx, tracking.ListFilter{QueryID: "q-2"})
		if len(q2) != 1 || q2[0].ProposalID != "z" {
			t.Errorf("List(q-2) = %v, want [z]", ids(q2))
		}

		page, _ := store.List(ctx, tracking.ListFilter{Offset: 1, Limit: 2})
		if len(page) != 2 || page[0].ProposalID != "b" || page[1].ProposalID != "c" {
			t.Errorf("List(offset 1, limit 2) = %v, want [b c]", ids(page))
		}
	})
}

// EventLog runs the workflow.Log suite.
func EventLog(t *testing.T, newLog func(t *testing.T) workflow.Log) {
	t.Helper()

	t.Run("append and load in order", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()

		first := workflow.NewStatusChanged("e-1", "q-1", "p-1", tracking.StateDraft, tracking.StateSent,
			tracking.TriggerProposalSent, map[string]any{"method": "whatsapp"}, Base)
		second := workflow.NewStatusChanged("e-2", "q-1", "p-1", tracking.StateSent, tracking.StateViewed,
			tracking.TriggerProposalViewed, nil, Base.Add(time.Minute))
		other := workflow.NewStatusChanged("e-3", "q-2", "p-2", tracking.StateDraft, tracking.StateSent,
			tracking.TriggerProposalSent, nil, Base)

		if err := log.Append(ctx, first, second); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := log.Append(ctx, other); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		events, err := log.LoadEvents(ctx, "q-1")
		if err != nil {
			t.Fatalf("LoadEvents() error = %v", err)
		}
		if len(events) != 2 || events[0].ID != "e-1" || events[1].ID != "e-2" {
			t.Fatalf("LoadEvents() = %+v, want e-1, e-2", events)
		}
		if events[0].Metadata["method"] != "whatsapp" || events[0].Metadata[workflow.MetaAutomated] != true {
			t.Errorf("metadata = %v", events[0].Metadata)
		}
		if events[1].PreviousStatus() != tracking.StateSent || events[1].NewStatus() != tracking.StateViewed {
			t.Errorf("statuses = %s -> %s", events[1].PreviousStatus(), events[1].NewStatus())
		}
		if events[0].UserID != workflow.AutomatedUser || events[0].Type != workflow.TypeStatusChanged {
			t.Errorf("event = %+v", events[0])
		}
	})

	t.Run("unknown query is empty", func(t *testing.T) {
		events, err := newLog(t).LoadEvents(context.Background(), "q-none")
		if err != nil {
			t.Fatalf("LoadEvents() error = %v", err)
		}
		if len(events) != 0 {
			t.Errorf("LoadEvents() = %v, want empty", events)
		}
	})

	t.Run("invalid events are rejected", func(t *testing.T) {
		log := newLog(t)
		err := log.Append(context.Background(), workflow.Event{ID: "e-1", Type: workflow.TypeStatusChanged})
		if !errors.Is(err, workflow.ErrInvalidEvent) {
			t.Errorf("Append() error = %v, want ErrInvalidEvent", err)
		}
	})
}

func ids(records []*tracking.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ProposalID
	}
	return out
}
