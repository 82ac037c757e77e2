package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
)

func TestReplay_Timeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.queries.Put(query.Query{ID: "q-1", Status: query.StatusAssigned})
	start := f.clock.Now()

	if _, err := f.engine.OnProposalCreated(ctx, "q-1", "p-1"); err != nil {
		t.Fatalf("OnProposalCreated() error = %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.engine.OnProposalSent(ctx, "p-1", "email"); err != nil {
		t.Fatalf("OnProposalSent() error = %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.engine.OnProposalViewed(ctx, "p-1", "c-1", "link"); err != nil {
		t.Fatalf("OnProposalViewed() error = %v", err)
	}

	tl, err := NewReplay(f.events, nil).Timeline(ctx, "q-1")
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if tl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tl.Len())
	}
	if tl.Duration() != 2*time.Hour {
		t.Errorf("Duration() = %v, want 2h", tl.Duration())
	}
	if got := tl.EventsInRange(start.Add(30*time.Minute), start.Add(2*time.Hour)); len(got) != 1 {
		t.Errorf("EventsInRange() = %d events, want 1", len(got))
	}

	transitions := tl.Transitions("p-1")
	want := []tracking.State{tracking.StateDraft, tracking.StateSent, tracking.StateViewed}
	for i, tr := range transitions {
		if tr.To != want[i] {
			t.Errorf("transition %d to = %s, want %s", i, tr.To, want[i])
		}
	}
	if transitions[0].From != tracking.StateAssigned || transitions[0].Trigger != tracking.TriggerProposalCreated {
		t.Errorf("first transition = %+v", transitions[0])
	}
	if len(tl.Transitions("other")) != 0 {
		t.Error("Transitions(other) should be empty")
	}

	if err := tl.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestReplay_TimelineEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := NewReplay(f.events, nil).Timeline(context.Background(), "none"); !errors.Is(err, ErrNoEvents) {
		t.Errorf("Timeline() error = %v, want ErrNoEvents", err)
	}
}

func TestTimeline_VerifyDetectsViolations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	events := []workflow.Event{
		workflow.NewStatusChanged("e-1", "q-1", "p-1", tracking.StateDraft, tracking.StateSent, tracking.TriggerProposalSent, nil, now),
		workflow.NewStatusChanged("e-2", "q-1", "p-1", tracking.StateSent, tracking.StateConfirmed, tracking.TriggerClientInterested, nil, now),
		workflow.NewStatusChanged("e-3", "q-1", "p-1", tracking.StateViewed, tracking.StateInterested, tracking.TriggerClientInterested, nil, now),
	}
	if err := f.events.Append(ctx, events...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	tl, err := NewReplay(f.events, nil).Timeline(ctx, "q-1")
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}

	err = tl.Verify()
	if err == nil {
		t.Fatal("Verify() should report violations")
	}
	if !strings.Contains(err.Error(), "e-2") || !strings.Contains(err.Error(), "not a declared rule") {
		t.Errorf("Verify() error = %v, want undeclared rule for e-2", err)
	}
	if !strings.Contains(err.Error(), "but was in "+string(tracking.StateConfirmed)) {
		t.Errorf("Verify() error = %v, want broken chain for e-3", err)
	}
}
