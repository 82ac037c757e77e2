package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// stepPayload travels with every event sent to the chart.
type stepPayload struct {
	From    tracking.State
	Trigger tracking.Trigger
}

// guardConditions evaluates the rule conditions against the replayed
// record. Guards receive *Context directly.
func guardConditions(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Record == nil {
		return true
	}

	payload, ok := event.Payload.(stepPayload)
	if !ok || ctx.Rules == nil {
		return false
	}

	rule, found := ctx.Rules.Match(payload.From, payload.Trigger)
	if !found {
		return false
	}

	ok, reason := tracking.Evaluate(ctx.Record, rule.Guard, ctx.Now)
	if !ok {
		ctx.Blocked = reason
	}
	return ok
}
