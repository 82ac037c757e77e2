package tracking

import (
	"errors"
	"testing"
)

func TestFeedbackKind_Trigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind FeedbackKind
		want Trigger
	}{
		{FeedbackInterested, TriggerClientInterested},
		{FeedbackModificationRequested, TriggerClientFeedback},
		{FeedbackNegotiation, TriggerNegotiationStarted},
		{FeedbackRejection, TriggerClientRejected},
	}

	for _, tt := range tests {
		got, err := tt.kind.Trigger()
		if err != nil || got != tt.want {
			t.Errorf("%s.Trigger() = %s, %v, want %s", tt.kind, got, err, tt.want)
		}
	}

	if _, err := FeedbackKind("praise").Trigger(); !errors.Is(err, ErrUnknownFeedback) {
		t.Errorf("unknown kind error = %v, want ErrUnknownFeedback", err)
	}
	if len(FeedbackKinds()) != 4 {
		t.Errorf("FeedbackKinds() len = %d, want 4", len(FeedbackKinds()))
	}
}
