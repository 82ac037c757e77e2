package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := bolt.New(bolt.NewJSONHandler(buf)).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}

	if ProductionConfig().Format != "json" {
		t.Error("ProductionConfig() should log json")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, l := range append(Levels(), "") {
		if !ValidLevel(l) {
			t.Errorf("ValidLevel(%q) = false, want true", l)
		}
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true, want false")
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"proposal", ProposalID("p-1"), `"proposal_id":"p-1"`},
		{"query", QueryID("q-1"), `"query_id":"q-1"`},
		{"status", Status(tracking.StateSent), `"status":"proposal-sent"`},
		{"from", FromStatus(tracking.StateDraft), `"from_status":"proposal-in-draft"`},
		{"to", ToStatus(tracking.StateViewed), `"to_status":"proposal-viewed"`},
		{"trigger", Trigger(tracking.TriggerFollowUpDue), `"trigger":"follow-up-due"`},
		{"kind", Kind(tracking.KindGuardNotSatisfied), `"kind":"guard-not-satisfied"`},
		{"duration", Duration(150 * time.Millisecond), `"duration_ms":150`},
		{"count", Count("due", 3), `"due":3`},
		{"reason", Reason("too early"), `"reason":"too early"`},
		{"component", Component("detector"), `"component":"detector"`},
		{"str", Str("sink", "nats"), `"sink":"nats"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	ErrorField(errors.New("store offline"))(logger.Error()).Msg("test")
	if !bytes.Contains(buf.Bytes(), []byte("store offline")) {
		t.Errorf("expected error in output: %s", buf.String())
	}

	logger, buf = testLogger()
	ErrorField(nil)(logger.Info()).Msg("clean")
	if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
		t.Errorf("nil error should add no field: %s", buf.String())
	}
}

func TestLogEventChaining(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).
		Add(ProposalID("p-9")).
		Add(Trigger(tracking.TriggerProposalSent)).
		Msg("transitioned")

	for _, want := range []string{`"proposal_id":"p-9"`, `"trigger":"proposal-sent"`, "transitioned"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in output: %s", want, buf.String())
		}
	}
}
