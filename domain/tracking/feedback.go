package tracking

import "fmt"

// FeedbackKind classifies how a client responded to a proposal.
type FeedbackKind string

const (
	FeedbackInterested            FeedbackKind = "interested"
	FeedbackModificationRequested FeedbackKind = "modification-requested"
	FeedbackNegotiation           FeedbackKind = "negotiation"
	FeedbackRejection             FeedbackKind = "rejection"
)

// Trigger maps the feedback to the trigger it fires.
func (k FeedbackKind) Trigger() (Trigger, error) {
	switch k {
	case FeedbackInterested:
		return TriggerClientInterested, nil
	case FeedbackModificationRequested:
		return TriggerClientFeedback, nil
	case FeedbackNegotiation:
		return TriggerNegotiationStarted, nil
	case FeedbackRejection:
		return TriggerClientRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFeedback, string(k))
	}
}

// FeedbackKinds returns every supported feedback kind.
func FeedbackKinds() []FeedbackKind {
	return []FeedbackKind{
		FeedbackInterested,
		FeedbackModificationRequested,
		FeedbackNegotiation,
		FeedbackRejection,
	}
}
