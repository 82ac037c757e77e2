package statemachine

import (
	"errors"
	"testing"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

func TestSimulate_HappyPath(t *testing.T) {
	t.Parallel()

	path, err := Simulate(tracking.StateDraft,
		tracking.TriggerProposalSent,
		tracking.TriggerProposalViewed,
		tracking.TriggerClientInterested,
		tracking.TriggerNegotiationStarted,
		tracking.TriggerClientInterested,
		tracking.TriggerPaymentReceived,
		tracking.TriggerBookingCompleted,
	)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	want := []tracking.State{
		tracking.StateDraft,
		tracking.StateSent,
		tracking.StateViewed,
		tracking.StateInterested,
		tracking.StateNegotiation,
		tracking.StateConfirmed,
		tracking.StateAdvanceReceived,
		tracking.StateBookingConfirmed,
	}
	got := path.States()
	if len(got) != len(want) {
		t.Fatalf("States() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("States()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSimulate_RevisionLoop(t *testing.T) {
	t.Parallel()

	path, err := Simulate(tracking.StateViewed,
		tracking.TriggerClientFeedback,
		tracking.TriggerProposalSent,
		tracking.TriggerProposalViewed,
	)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if path.End() != tracking.StateViewed || len(path.Steps) != 3 {
		t.Errorf("path = %+v, want back at viewed after 3 steps", path)
	}
	if path.Steps[1].To != tracking.StateRevisedSent {
		t.Errorf("resend went to %s, want %s", path.Steps[1].To, tracking.StateRevisedSent)
	}
}

func TestSimulate_RefusesUnknownTransition(t *testing.T) {
	t.Parallel()

	path, err := Simulate(tracking.StateDraft,
		tracking.TriggerProposalSent,
		tracking.TriggerProposalSent,
	)
	if !errors.Is(err, tracking.ErrNoApplicableRule) {
		t.Fatalf("Simulate() error = %v, want ErrNoApplicableRule", err)
	}
	if len(path.Steps) != 1 || path.End() != tracking.StateSent {
		t.Errorf("partial path = %+v, want one step to sent", path)
	}
}

func TestSimulate_RejectsPseudoStart(t *testing.T) {
	t.Parallel()

	if _, err := Simulate(tracking.StateAssigned, tracking.TriggerProposalCreated); !errors.Is(err, ErrNotInChart) {
		t.Errorf("Simulate() error = %v, want ErrNotInChart", err)
	}
}

func TestReplay_EvaluatesGuards(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	record, err := tracking.NewRecord("q-1", "p-1", now)
	if err != nil {
		t.Fatal(err)
	}
	record.CurrentStatus = tracking.StateConfirmed

	_, err = Replay(record, now, tracking.TriggerPaymentReceived)
	if !errors.Is(err, tracking.ErrGuardNotSatisfied) {
		t.Fatalf("Replay() error = %v, want ErrGuardNotSatisfied", err)
	}
	var te *tracking.TransitionError
	if !errors.As(err, &te) || te.Condition == "" {
		t.Errorf("error = %v, want the failed condition named", err)
	}

	if err := record.AddPayment(5000, tracking.PaymentAdvance, now); err != nil {
		t.Fatal(err)
	}
	path, err := Replay(record, now, tracking.TriggerPaymentReceived, tracking.TriggerBookingCompleted)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if path.End() != tracking.StateBookingConfirmed {
		t.Errorf("End() = %s, want %s", path.End(), tracking.StateBookingConfirmed)
	}
	if record.CurrentStatus != tracking.StateConfirmed {
		t.Error("Replay() modified the record")
	}
}

func TestInterpreter_TerminalState(t *testing.T) {
	t.Parallel()

	machine, err := NewProposalMachine()
	if err != nil {
		t.Fatal(err)
	}
	interp, err := NewInterpreter(machine, NewContext(nil, time.Now()), tracking.StateAdvanceReceived)
	if err != nil {
		t.Fatalf("NewInterpreter() error = %v", err)
	}
	if interp.IsTerminal() {
		t.Error("advance-received should not be terminal")
	}

	if _, err := interp.Fire(tracking.TriggerBookingCompleted); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if !interp.IsTerminal() || !interp.Matches(tracking.StateBookingConfirmed) {
		t.Errorf("state = %s, want terminal booking-confirmed", interp.State())
	}
	if interp.Context().Transitions != 1 {
		t.Errorf("Transitions = %d, want 1", interp.Context().Transitions)
	}
}
