package statemachine

import "github.com/felixgeelhaar/statekit"

// countTransition counts taken transitions. Actions receive **Context.
func countTransition(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Transitions++
}
