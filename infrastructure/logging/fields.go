package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// ProposalID adds a proposal ID field.
func ProposalID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("proposal_id", id)
	}
}

// QueryID adds a query ID field.
func QueryID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("query_id", id)
	}
}

// Status adds a status field.
func Status(s tracking.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s tracking.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s tracking.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// Trigger adds a trigger field.
func Trigger(t tracking.Trigger) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("trigger", string(t))
	}
}

// Kind adds the failure kind of a transition error.
func Kind(k tracking.ErrorKind) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("kind", string(k))
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Count adds a named integer field.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
