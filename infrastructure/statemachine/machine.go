// Package statemachine expresses the proposal lifecycle as a statekit
// statechart. The chart mirrors the default rule table and is used to
// simulate trigger sequences.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// MachineID identifies the proposal chart in snapshots.
const MachineID = "proposal"

// Context carries a replayed record through the chart. A nil Record
// disables the guards, which is how dry simulations run.
type Context struct {
	Record *tracking.Record
	Now    time.Time
	Rules  *tracking.RuleTable

	// Transitions counts the transitions taken.
	Transitions int
	// Blocked names the guard condition that last refused a transition.
	Blocked string
}

// NewContext creates a machine context over the default rule table.
func NewContext(record *tracking.Record, now time.Time) *Context {
	return &Context{
		Record: record,
		Now:    now,
		Rules:  tracking.DefaultRuleTable(),
	}
}

// State IDs as StateID type for statekit.
const (
	stateDraft        = statekit.StateID(tracking.StateDraft)
	stateSent         = statekit.StateID(tracking.StateSent)
	stateViewed       = statekit.StateID(tracking.StateViewed)
	stateModification = statekit.StateID(tracking.StateModificationRequested)
	stateRevised      = statekit.StateID(tracking.StateRevisedSent)
	stateFollowUp     = statekit.StateID(tracking.StateFollowUpPending)
	stateNoResponse   = statekit.StateID(tracking.StateNoResponse)
	stateInterested   = statekit.StateID(tracking.StateInterested)
	stateNegotiation  = statekit.StateID(tracking.StateNegotiation)
	stateConfirmed    = statekit.StateID(tracking.StateConfirmed)
	stateAdvance      = statekit.StateID(tracking.StateAdvanceReceived)
	stateBooked       = statekit.StateID(tracking.StateBookingConfirmed)
)

// Event types, one per trigger.
const (
	evSent        = statekit.EventType(tracking.TriggerProposalSent)
	evViewed      = statekit.EventType(tracking.TriggerProposalViewed)
	evFeedback    = statekit.EventType(tracking.TriggerClientFeedback)
	evFollowUp    = statekit.EventType(tracking.TriggerFollowUpDue)
	evNoResponse  = statekit.EventType(tracking.TriggerNoResponseDetected)
	evInterested  = statekit.EventType(tracking.TriggerClientInterested)
	evNegotiation = statekit.EventType(tracking.TriggerNegotiationStarted)
	evPayment     = statekit.EventType(tracking.TriggerPaymentReceived)
	evBooking     = statekit.EventType(tracking.TriggerBookingCompleted)
)

// NewProposalMachine creates the proposal lifecycle statechart. The pseudo
// states of the first transition belong to the query lifecycle and are not
// part of the chart; it starts in proposal-in-draft.
func NewProposalMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context](MachineID).
		WithInitial(stateDraft).
		WithContext(&Context{}).
		WithAction("countTransition", countTransition).
		WithGuard("conditions", guardConditions).
		State(stateDraft).
		On(evSent).Target(stateSent).Do("countTransition").
		Done().
		State(stateSent).
		On(evViewed).Target(stateViewed).Do("countTransition").
		On(evFollowUp).Target(stateFollowUp).Guard("conditions").Do("countTransition").
		Done().
		State(stateFollowUp).
		On(evViewed).Target(stateViewed).Do("countTransition").
		On(evNoResponse).Target(stateNoResponse).Guard("conditions").Do("countTransition").
		Done().
		State(stateNoResponse).
		On(evViewed).Target(stateViewed).Do("countTransition").
		Done().
		State(stateViewed).
		On(evFeedback).Target(stateModification).Guard("conditions").Do("countTransition").
		On(evInterested).Target(stateInterested).Do("countTransition").
		On(evNegotiation).Target(stateNegotiation).Do("countTransition").
		Done().
		State(stateModification).
		On(evSent).Target(stateRevised).Do("countTransition").
		Done().
		State(stateRevised).
		On(evViewed).Target(stateViewed).Do("countTransition").
		Done().
		State(stateInterested).
		On(evNegotiation).Target(stateNegotiation).Do("countTransition").
		Done().
		State(stateNegotiation).
		On(evInterested).Target(stateConfirmed).Do("countTransition").
		Done().
		State(stateConfirmed).
		On(evPayment).Target(stateAdvance).Guard("conditions").Do("countTransition").
		Done().
		State(stateAdvance).
		On(evBooking).Target(stateBooked).Do("countTransition").
		Done().
		State(stateBooked).
		Final().
		Done().
		Build()
}

// EventFor returns the chart event of a trigger.
func EventFor(trigger tracking.Trigger) statekit.EventType {
	return statekit.EventType(trigger)
}

// StateFromMachine converts the machine state ID to a lifecycle state.
func StateFromMachine(stateID statekit.StateID) tracking.State {
	return tracking.State(stateID)
}
