package tracking

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound indicates no tracking record exists for the proposal.
	ErrRecordNotFound = errors.New("tracking record not found")

	// ErrRecordExists indicates a tracking record was already initialized.
	ErrRecordExists = errors.New("tracking record already exists")

	// ErrInvalidRecord indicates the record is missing its identity.
	ErrInvalidRecord = errors.New("invalid tracking record")

	// ErrNoApplicableRule indicates no rule matches the current state and trigger.
	ErrNoApplicableRule = errors.New("no applicable transition rule")

	// ErrGuardNotSatisfied indicates a rule matched but its conditions failed.
	ErrGuardNotSatisfied = errors.New("transition conditions not met")

	// ErrUnknownState indicates a string is not a lifecycle state.
	ErrUnknownState = errors.New("unknown state")

	// ErrUnknownTrigger indicates a string is not a trigger.
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrInvalidRule indicates a rule table entry is malformed.
	ErrInvalidRule = errors.New("invalid transition rule")

	// ErrInvalidPayment indicates a payment has a bad amount or type.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrUnknownFeedback indicates an unsupported client feedback kind.
	ErrUnknownFeedback = errors.New("unknown feedback kind")
)

// ErrorKind classifies recoverable transition failures.
type ErrorKind string

const (
	KindRecordNotFound    ErrorKind = "record-not-found"
	KindNoApplicableRule  ErrorKind = "no-applicable-rule"
	KindGuardNotSatisfied ErrorKind = "guard-not-satisfied"
	KindInfrastructure    ErrorKind = "infrastructure"
)

// TransitionError describes why a transition did not happen.
type TransitionError struct {
	ProposalID string
	Trigger    Trigger
	From       State
	// Condition names the failed guard condition, if any.
	Condition string
	Err       error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("transition %s on proposal %s", e.Trigger, e.ProposalID)
	if e.From != "" {
		msg += fmt.Sprintf(" from %s", e.From)
	}
	msg += ": " + e.Err.Error()
	if e.Condition != "" {
		msg += " (" + e.Condition + ")"
	}
	return msg
}

// Unwrap returns the underlying sentinel error.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// ReasonOf classifies err. Errors outside the recoverable taxonomy are
// reported as KindInfrastructure; a nil error yields the empty kind.
func ReasonOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRecordNotFound):
		return KindRecordNotFound
	case errors.Is(err, ErrNoApplicableRule):
		return KindNoApplicableRule
	case errors.Is(err, ErrGuardNotSatisfied):
		return KindGuardNotSatisfied
	default:
		return KindInfrastructure
	}
}

// IsRecoverable returns true for the non-fatal failure kinds. Callers may
// retry, ignore or surface them.
func IsRecoverable(err error) bool {
	switch ReasonOf(err) {
	case KindRecordNotFound, KindNoApplicableRule, KindGuardNotSatisfied:
		return true
	default:
		return false
	}
}
