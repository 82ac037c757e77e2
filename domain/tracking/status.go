// Package tracking provides the proposal lifecycle domain: states, triggers,
// the transition rule table and the per-proposal tracking record.
package tracking

import "fmt"

// State represents a lifecycle state of a proposal.
type State string

const (
	// StateDraft is the initial state of every tracking record.
	StateDraft State = "proposal-in-draft"

	// StateSent indicates the proposal was delivered to the client.
	StateSent State = "proposal-sent"

	// StateViewed indicates the client opened the proposal.
	StateViewed State = "proposal-viewed"

	// StateModificationRequested indicates the client asked for changes.
	StateModificationRequested State = "modification-requested"

	// StateRevisedSent indicates a revised proposal was delivered.
	StateRevisedSent State = "revised-proposal-sent"

	// StateFollowUpPending indicates a follow-up went out and a reply is awaited.
	StateFollowUpPending State = "follow-up-pending"

	// StateNoResponse indicates the client stopped responding.
	StateNoResponse State = "no-response"

	// StateInterested indicates the client expressed interest.
	StateInterested State = "interested"

	// StateNegotiation indicates price or itinerary negotiation is ongoing.
	StateNegotiation State = "negotiation"

	// StateConfirmed indicates the client accepted the proposal.
	StateConfirmed State = "confirmed"

	// StateAdvanceReceived indicates a payment was received.
	StateAdvanceReceived State = "advance-received"

	// StateBookingConfirmed indicates the booking was completed.
	StateBookingConfirmed State = "booking-confirmed"
)

// Pseudo-states owned by the enclosing query lifecycle. They are only valid
// as the source of the very first transition.
const (
	StateAssigned   State = "assigned"
	StateInProgress State = "in-progress"
)

var allStates = []State{
	StateDraft,
	StateSent,
	StateViewed,
	StateModificationRequested,
	StateRevisedSent,
	StateFollowUpPending,
	StateNoResponse,
	StateInterested,
	StateNegotiation,
	StateConfirmed,
	StateAdvanceReceived,
	StateBookingConfirmed,
}

// AllStates returns the lifecycle states in typical progression order.
func AllStates() []State {
	states := make([]State, len(allStates))
	copy(states, allStates)
	return states
}

// IsValid returns true if s is a lifecycle state the engine can enter.
func (s State) IsValid() bool {
	for _, st := range allStates {
		if st == s {
			return true
		}
	}
	return false
}

// IsPseudo returns true for the query-owned pseudo-states.
func (s State) IsPseudo() bool {
	return s == StateAssigned || s == StateInProgress
}

// IsConverted returns true if the proposal counts as won.
func (s State) IsConverted() bool {
	return s == StateConfirmed || s == StateAdvanceReceived || s == StateBookingConfirmed
}

// IsTerminal returns true if no rule leaves the state.
func (s State) IsTerminal() bool {
	return s == StateBookingConfirmed
}

// ParseState converts a string into a State, accepting pseudo-states.
func ParseState(s string) (State, error) {
	st := State(s)
	if st.IsValid() || st.IsPseudo() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// Trigger is a discrete event that may cause a state transition.
type Trigger string

const (
	TriggerProposalCreated    Trigger = "proposal-created"
	TriggerProposalSent       Trigger = "proposal-sent"
	TriggerProposalViewed     Trigger = "proposal-viewed"
	TriggerClientFeedback     Trigger = "client-feedback"
	TriggerFollowUpDue        Trigger = "follow-up-due"
	TriggerNoResponseDetected Trigger = "no-response-detected"
	TriggerClientInterested   Trigger = "client-interested"
	TriggerNegotiationStarted Trigger = "negotiation-started"
	TriggerPaymentReceived    Trigger = "payment-received"
	TriggerBookingCompleted   Trigger = "booking-completed"

	// TriggerClientRejected is produced by rejection feedback. No rule
	// accepts it yet, so firing it always fails with ErrNoApplicableRule.
	TriggerClientRejected Trigger = "client-rejected"
)

var allTriggers = []Trigger{
	TriggerProposalCreated,
	TriggerProposalSent,
	TriggerProposalViewed,
	TriggerClientFeedback,
	TriggerFollowUpDue,
	TriggerNoResponseDetected,
	TriggerClientInterested,
	TriggerNegotiationStarted,
	TriggerPaymentReceived,
	TriggerBookingCompleted,
	TriggerClientRejected,
}

// AllTriggers returns every known trigger.
func AllTriggers() []Trigger {
	triggers := make([]Trigger, len(allTriggers))
	copy(triggers, allTriggers)
	return triggers
}

// IsValid returns true if t is a known trigger.
func (t Trigger) IsValid() bool {
	for _, tr := range allTriggers {
		if tr == t {
			return true
		}
	}
	return false
}

// ParseTrigger converts a string into a Trigger.
func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTrigger, s)
	}
	return t, nil
}

// TriggeredBySystem marks history entries written outside a transition.
const TriggeredBySystem = "system"
