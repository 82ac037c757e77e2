package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/memory"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/sqlite"
)

// Test helpers

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine  *Engine
	store   *memory.TrackingStore
	events  *memory.EventLog
	queries *memory.QueryDirectory
	clock   *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:   memory.NewTrackingStore(),
		events:  memory.NewEventLog(),
		queries: memory.NewQueryDirectory(),
		clock:   newFakeClock(),
	}

	var seq atomic.Int64
	base := []Option{
		WithStore(f.store),
		WithSink(f.events),
		WithQueries(f.queries),
		WithClock(f.clock.Now),
		WithIDFunc(func() string { return fmt.Sprintf("evt-%d", seq.Add(1)) }),
	}

	engine, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.engine = engine
	return f
}

// seed stores a record already in status, with a matching history entry.
func (f *fixture) seed(t *testing.T, proposalID string, status tracking.State, mutate func(r *tracking.Record)) *tracking.Record {
	t.Helper()

	now := f.clock.Now()
	r, err := tracking.NewRecord("q-"+proposalID, proposalID, now)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	if status != tracking.StateDraft {
		r.CurrentStatus = status
		r.StatusHistory = append(r.StatusHistory, tracking.HistoryEntry{
			Status:      status,
			Timestamp:   now,
			TriggeredBy: "seed",
		})
	}
	if mutate != nil {
		mutate(r)
	}
	if err := f.store.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return r
}

func (f *fixture) get(t *testing.T, proposalID string) *tracking.Record {
	t.Helper()

	r, err := f.store.Get(context.Background(), proposalID)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", proposalID, err)
	}
	return r
}

func assertHistoryConsistent(t *testing.T, r *tracking.Record) {
	t.Helper()

	last, ok := r.LastEntry()
	if !ok {
		t.Fatal("record has no history")
	}
	if last.Status != r.CurrentStatus {
		t.Errorf("last history status = %s, current = %s", last.Status, r.CurrentStatus)
	}
}

func ago(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * tracking.Day)
	return &t
}

// Tests

func TestNewEngine_RequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(EngineConfig{}); err == nil {
		t.Error("NewEngine() without store should fail")
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	e, err := New(WithStore(memory.NewTrackingStore()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Rules().Len() != len(tracking.DefaultRules()) {
		t.Errorf("Rules().Len() = %d, want %d", e.Rules().Len(), len(tracking.DefaultRules()))
	}
	if e.Policy() != tracking.DefaultFollowUpPolicy() {
		t.Errorf("Policy() = %+v, want defaults", e.Policy())
	}
}

func TestEngine_Initialize(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	r, err := f.engine.Initialize(ctx, "q-1", "p-1")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if r.CurrentStatus != tracking.StateDraft || len(r.StatusHistory) != 1 {
		t.Errorf("Initialize() = %s with %d entries, want draft with 1", r.CurrentStatus, len(r.StatusHistory))
	}

	if _, err := f.engine.Initialize(ctx, "q-1", "p-1"); !errors.Is(err, tracking.ErrRecordExists) {
		t.Errorf("second Initialize() error = %v, want ErrRecordExists", err)
	}
}

func TestEngine_TransitionEmitsEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "p-1", tracking.StateDraft, nil)

	r, err := f.engine.Transition(ctx, "p-1", tracking.TriggerProposalSent, map[string]any{
		"method":               "email",
		workflow.MetaNewStatus: "spoofed",
		workflow.MetaAutomated: false,
	})
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if r.CurrentStatus != tracking.StateSent {
		t.Errorf("CurrentStatus = %s, want %s", r.CurrentStatus, tracking.StateSent)
	}
	if r.ProposalSentDate == nil || !r.ProposalSentDate.Equal(f.clock.Now()) {
		t.Errorf("ProposalSentDate = %v, want %v", r.ProposalSentDate, f.clock.Now())
	}
	assertHistoryConsistent(t, r)

	events, err := f.events.LoadEvents(ctx, "q-p-1")
	if err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	ev := events[0]
	if ev.ID != "evt-1" || ev.Type != workflow.TypeStatusChanged || ev.UserID != workflow.AutomatedUser {
		t.Errorf("event = %+v", ev)
	}
	if ev.PreviousStatus() != tracking.StateDraft || ev.NewStatus() != tracking.StateSent {
		t.Errorf("event statuses = %s -> %s", ev.PreviousStatus(), ev.NewStatus())
	}
	if ev.Metadata["method"] != "email" || ev.Metadata[workflow.MetaAutomated] != true {
		t.Errorf("event metadata = %v", ev.Metadata)
	}
}

func TestEngine_TransitionFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  tracking.State
		trigger tracking.Trigger
		want    error
		kind    tracking.ErrorKind
	}{
		{"double send", tracking.StateSent, tracking.TriggerProposalSent, tracking.ErrNoApplicableRule, tracking.KindNoApplicableRule},
		{"rejection has no rule", tracking.StateViewed, tracking.TriggerClientRejected, tracking.ErrNoApplicableRule, tracking.KindNoApplicableRule},
		{"follow-up without interaction", tracking.StateSent, tracking.TriggerFollowUpDue, tracking.ErrGuardNotSatisfied, tracking.KindGuardNotSatisfied},
		{"payment guard", tracking.StateConfirmed, tracking.TriggerPaymentReceived, tracking.ErrGuardNotSatisfied, tracking.KindGuardNotSatisfied},
		{"terminal", tracking.StateBookingConfirmed, tracking.TriggerProposalViewed, tracking.ErrNoApplicableRule, tracking.KindNoApplicableRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.seed(t, "p-1", tt.status, nil)
			before := f.get(t, "p-1")

			r, err := f.engine.Transition(context.Background(), "p-1", tt.trigger, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Transition() error = %v, want %v", err, tt.want)
			}
			if r != nil {
				t.Error("failed Transition() should return no record")
			}
			if tracking.ReasonOf(err) != tt.kind {
				t.Errorf("ReasonOf() = %s, want %s", tracking.ReasonOf(err), tt.kind)
			}

			var terr *tracking.TransitionError
			if !errors.As(err, &terr) || terr.From != tt.status {
				t.Errorf("TransitionError = %+v, want From %s", terr, tt.status)
			}

			if after := f.get(t, "p-1"); !reflect.DeepEqual(before, after) {
				t.Errorf("failed transition changed the record:\nbefore %+v\nafter  %+v", before, after)
			}
			if f.events.Len() != 0 {
				t.Errorf("events = %d, want 0", f.events.Len())
			}
		})
	}
}

// populatedRecord has every optional field set.
func populatedRecord(t *testing.T, now time.Time) *tracking.Record {
	t.Helper()

	r, err := tracking.NewRecord("q-full", "p-full", now.Add(-10*tracking.Day))
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	r.CurrentStatus = tracking.StateFollowUpPending
	r.StatusHistory = append(r.StatusHistory,
		tracking.HistoryEntry{Status: tracking.StateSent, Timestamp: now.Add(-9 * tracking.Day), TriggeredBy: "proposal-sent", Metadata: map[string]any{"method": "email"}},
		tracking.HistoryEntry{Status: tracking.StateFollowUpPending, Timestamp: now.Add(-2 * tracking.Day), TriggeredBy: "follow-up-due"},
	)
	r.ProposalSentDate = ago(now, 9)
	r.ProposalViewedDate = ago(now, 8)
	r.LastClientInteraction = ago(now, 1)
	r.FollowUpCount = 1
	r.LastFollowUpDate = ago(now, 2)
	r.ClientResponseCount = 3
	r.PaymentHistory = []tracking.Payment{{Amount: 250, Type: tracking.PaymentAdvance, Date: now.Add(-3 * tracking.Day)}}
	r.UpdatedAt = now.Add(-2 * tracking.Day)
	return r
}

func TestEngine_FailedTransitionLeavesPopulatedRecordUnchanged(t *testing.T) {
	t.Parallel()

	stores := []struct {
		name  string
		store func(t *testing.T) tracking.Store
	}{
		{"memory", func(*testing.T) tracking.Store { return memory.NewTrackingStore() }},
		{"sqlite", func(t *testing.T) tracking.Store {
			store, err := sqlite.NewTrackingStore(sqlite.DefaultConfig(),
				sqlite.WithDSN("file:"+filepath.Join(t.TempDir(), "tracker.db")+"?mode=rwc"))
			if err != nil {
				t.Fatalf("NewTrackingStore() error = %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
	triggers := []tracking.Trigger{
		tracking.TriggerNoResponseDetected, // guard: interaction one day ago
		tracking.TriggerProposalSent,       // no rule from follow-up-pending
	}

	for _, st := range stores {
		for _, trigger := range triggers {
			t.Run(st.name+"/"+string(trigger), func(t *testing.T) {
				t.Parallel()

				clock := newFakeClock()
				store := st.store(t)
				events := memory.NewEventLog()
				engine, err := New(WithStore(store), WithSink(events), WithClock(clock.Now))
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}

				ctx := context.Background()
				if err := store.Save(ctx, populatedRecord(t, clock.Now())); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
				before, err := store.Get(ctx, "p-full")
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}

				clock.Advance(time.Hour)
				if _, err := engine.Transition(ctx, "p-full", trigger, map[string]any{"source": "test"}); err == nil {
					t.Fatal("Transition() error = nil, want failure")
				}

				after, err := store.Get(ctx, "p-full")
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if !reflect.DeepEqual(before, after) {
					t.Errorf("failed transition changed the record:\nbefore %+v\nafter  %+v", before, after)
				}
				if events.Len() != 0 {
					t.Errorf("events = %d, want 0", events.Len())
				}
			})
		}
	}
}

func TestEngine_FollowUpCountNeverDecreases(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()
	f.seed(t, "p-1", tracking.StateSent, func(r *tracking.Record) {
		r.LastClientInteraction = ago(now, 4)
	})

	steps := []struct {
		trigger tracking.Trigger
		wantErr bool
	}{
		{tracking.TriggerFollowUpDue, false},
		{tracking.TriggerFollowUpDue, true},
		{tracking.TriggerNoResponseDetected, true},
		{tracking.TriggerProposalSent, true},
		{tracking.TriggerProposalViewed, false},
		{tracking.TriggerClientFeedback, false},
		{tracking.TriggerProposalSent, false},
		{tracking.TriggerProposalViewed, false},
		{tracking.TriggerNegotiationStarted, false},
		{tracking.TriggerClientRejected, true},
	}

	count := f.get(t, "p-1").FollowUpCount
	for i, step := range steps {
		f.clock.Advance(time.Hour)
		_, err := f.engine.Transition(ctx, "p-1", step.trigger, nil)
		if (err != nil) != step.wantErr {
			t.Fatalf("step %d (%s): error = %v, wantErr %v", i, step.trigger, err, step.wantErr)
		}

		got := f.get(t, "p-1").FollowUpCount
		if got < count {
			t.Fatalf("step %d (%s): FollowUpCount went from %d to %d", i, step.trigger, count, got)
		}
		count = got
	}

	if count != 1 {
		t.Errorf("FollowUpCount = %d, want 1", count)
	}
}

func TestEngine_TransitionUnknownProposal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.engine.Transition(context.Background(), "missing", tracking.TriggerProposalSent, nil)
	if !errors.Is(err, tracking.ErrRecordNotFound) {
		t.Errorf("Transition() error = %v, want ErrRecordNotFound", err)
	}
	if tracking.ReasonOf(err) != tracking.KindRecordNotFound {
		t.Errorf("ReasonOf() = %s", tracking.ReasonOf(err))
	}
}

func TestEngine_SinkFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	failing := workflow.SinkFunc(func(context.Context, ...workflow.Event) error {
		return workflow.ErrSinkUnavailable
	})
	f := newFixture(t, WithSink(failing))
	f.seed(t, "p-1", tracking.StateDraft, nil)

	r, err := f.engine.Transition(context.Background(), "p-1", tracking.TriggerProposalSent, nil)
	if err != nil {
		t.Fatalf("Transition() error = %v, want nil", err)
	}
	if r.CurrentStatus != tracking.StateSent {
		t.Errorf("CurrentStatus = %s, want %s", r.CurrentStatus, tracking.StateSent)
	}
	if f.get(t, "p-1").CurrentStatus != tracking.StateSent {
		t.Error("transition was not persisted")
	}
}

type failingUpdateStore struct {
	*memory.TrackingStore
}

func (s failingUpdateStore) Update(context.Context, *tracking.Record) error {
	return errors.New("disk full")
}

func TestEngine_PersistFailureIsInfrastructure(t *testing.T) {
	t.Parallel()

	store := failingUpdateStore{memory.NewTrackingStore()}
	events := memory.NewEventLog()
	e, err := New(WithStore(store), WithSink(events))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := e.Initialize(context.Background(), "q-1", "p-1"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	_, err = e.Transition(context.Background(), "p-1", tracking.TriggerProposalSent, nil)
	if err == nil {
		t.Fatal("Transition() should fail when the store cannot update")
	}
	if tracking.IsRecoverable(err) {
		t.Error("persist failures are not recoverable")
	}
	if tracking.ReasonOf(err) != tracking.KindInfrastructure {
		t.Errorf("ReasonOf() = %s, want %s", tracking.ReasonOf(err), tracking.KindInfrastructure)
	}
	if events.Len() != 0 {
		t.Error("no event should be emitted for an unpersisted transition")
	}
}

func TestEngine_ConcurrentTransitionsAreSerialized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "p-1", tracking.StateDraft, nil)

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Transition(context.Background(), "p-1", tracking.TriggerProposalSent, nil); err == nil {
				succeeded.Add(1)
			} else if !errors.Is(err, tracking.ErrNoApplicableRule) {
				t.Errorf("Transition() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Errorf("successful sends = %d, want 1", succeeded.Load())
	}
	r := f.get(t, "p-1")
	if len(r.StatusHistory) != 2 {
		t.Errorf("history len = %d, want 2", len(r.StatusHistory))
	}
	if f.events.Len() != 1 {
		t.Errorf("events = %d, want 1", f.events.Len())
	}
}

func TestEngine_FullLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.queries.Put(query.Query{ID: "q-1", Status: query.StatusInProgress})

	steps := []struct {
		name string
		run  func() (*tracking.Record, error)
		want tracking.State
	}{
		{"created", func() (*tracking.Record, error) { return f.engine.OnProposalCreated(ctx, "q-1", "p-1") }, tracking.StateDraft},
		{"sent", func() (*tracking.Record, error) { return f.engine.OnProposalSent(ctx, "p-1", "email") }, tracking.StateSent},
		{"viewed", func() (*tracking.Record, error) { return f.engine.OnProposalViewed(ctx, "p-1", "c-1", "link") }, tracking.StateViewed},
		{"modification", func() (*tracking.Record, error) {
			return f.engine.OnClientFeedback(ctx, "p-1", tracking.FeedbackModificationRequested)
		}, tracking.StateModificationRequested},
		{"revised", func() (*tracking.Record, error) { return f.engine.OnProposalSent(ctx, "p-1", "whatsapp") }, tracking.StateRevisedSent},
		{"viewed again", func() (*tracking.Record, error) { return f.engine.OnProposalViewed(ctx, "p-1", "c-1", "pdf") }, tracking.StateViewed},
		{"negotiation", func() (*tracking.Record, error) {
			return f.engine.OnClientFeedback(ctx, "p-1", tracking.FeedbackNegotiation)
		}, tracking.StateNegotiation},
		{"confirmed", func() (*tracking.Record, error) {
			return f.engine.OnClientFeedback(ctx, "p-1", tracking.FeedbackInterested)
		}, tracking.StateConfirmed},
		{"advance", func() (*tracking.Record, error) {
			return f.engine.OnPaymentReceived(ctx, "p-1", 5000, tracking.PaymentAdvance)
		}, tracking.StateAdvanceReceived},
		{"booked", func() (*tracking.Record, error) {
			return f.engine.Transition(ctx, "p-1", tracking.TriggerBookingCompleted, nil)
		}, tracking.StateBookingConfirmed},
	}

	for _, step := range steps {
		f.clock.Advance(time.Hour)
		r, err := step.run()
		if err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if r.CurrentStatus != step.want {
			t.Fatalf("%s: CurrentStatus = %s, want %s", step.name, r.CurrentStatus, step.want)
		}
		assertHistoryConsistent(t, r)
	}

	r := f.get(t, "p-1")
	if len(r.StatusHistory) != len(steps)+1 {
		t.Errorf("history len = %d, want %d", len(r.StatusHistory), len(steps)+1)
	}
	if r.ClientResponseCount != 2 {
		t.Errorf("ClientResponseCount = %d, want 2", r.ClientResponseCount)
	}
	if f.events.Len() != len(steps) {
		t.Errorf("events = %d, want %d", f.events.Len(), len(steps))
	}
}
