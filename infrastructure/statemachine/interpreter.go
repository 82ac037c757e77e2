package statemachine

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// ErrNotInChart is returned when a simulation starts outside the chart.
var ErrNotInChart = errors.New("state is not part of the chart")

// Step is one transition of a simulated path.
type Step struct {
	Trigger tracking.Trigger `json:"trigger"`
	From    tracking.State   `json:"from"`
	To      tracking.State   `json:"to"`
}

// Path is the outcome of a simulation.
type Path struct {
	Start tracking.State `json:"start"`
	Steps []Step         `json:"steps"`
}

// End returns the state the path ends in.
func (p Path) End() tracking.State {
	if len(p.Steps) == 0 {
		return p.Start
	}
	return p.Steps[len(p.Steps)-1].To
}

// States returns the visited states, start included.
func (p Path) States() []tracking.State {
	states := make([]tracking.State, 0, len(p.Steps)+1)
	states = append(states, p.Start)
	for _, s := range p.Steps {
		states = append(states, s.To)
	}
	return states
}

// Interpreter runs the proposal chart.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter positioned at start. Starting
// anywhere but proposal-in-draft restores a snapshot.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context, start tracking.State) (*Interpreter, error) {
	if !start.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrNotInChart, start)
	}

	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})

	if start == tracking.StateDraft {
		interp.Start()
	} else {
		snapshot := statekit.Snapshot[*Context]{
			MachineID:    MachineID,
			CurrentState: statekit.StateID(start),
			Context:      ctx,
			CreatedAt:    time.Now(),
		}
		if err := interp.Restore(snapshot); err != nil {
			return nil, fmt.Errorf("restore chart at %s: %w", start, err)
		}
	}

	return &Interpreter{interp: interp, ctx: ctx}, nil
}

// State returns the current state.
func (i *Interpreter) State() tracking.State {
	return StateFromMachine(i.interp.State().Value)
}

// IsTerminal returns true if the chart reached its final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(state tracking.State) bool {
	return i.interp.Matches(statekit.StateID(state))
}

// Fire sends trigger to the chart. The rule table is consulted first so
// the chart only ever receives events it defines.
func (i *Interpreter) Fire(trigger tracking.Trigger) (Step, error) {
	from := i.State()

	rule, ok := i.ctx.Rules.Match(from, trigger)
	if !ok {
		return Step{}, &tracking.TransitionError{
			Trigger: trigger,
			From:    from,
			Err:     tracking.ErrNoApplicableRule,
		}
	}

	i.ctx.Blocked = ""
	i.interp.Send(statekit.Event{
		Type:    EventFor(trigger),
		Payload: stepPayload{From: from, Trigger: trigger},
	})

	to := i.State()
	if to == from {
		return Step{}, &tracking.TransitionError{
			Trigger:   trigger,
			From:      from,
			Condition: i.ctx.Blocked,
			Err:       tracking.ErrGuardNotSatisfied,
		}
	}

	if i.ctx.Record != nil {
		i.ctx.Record.Apply(rule, trigger, i.ctx.Now, nil)
	}

	return Step{Trigger: trigger, From: from, To: to}, nil
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Simulate replays triggers from start without guards and returns the
// visited path. It stops at the first trigger the lifecycle refuses and
// returns the path so far with the error.
func Simulate(start tracking.State, triggers ...tracking.Trigger) (Path, error) {
	return run(NewContext(nil, time.Time{}), start, triggers)
}

// Replay simulates triggers against a copy of record, evaluating the
// rule conditions at now. The record itself is not modified.
func Replay(record *tracking.Record, now time.Time, triggers ...tracking.Trigger) (Path, error) {
	return run(NewContext(record.Clone(), now), record.CurrentStatus, triggers)
}

func run(ctx *Context, start tracking.State, triggers []tracking.Trigger) (Path, error) {
	path := Path{Start: start, Steps: []Step{}}

	machine, err := NewProposalMachine()
	if err != nil {
		return path, fmt.Errorf("build chart: %w", err)
	}

	interp, err := NewInterpreter(machine, ctx, start)
	if err != nil {
		return path, err
	}

	for _, trigger := range triggers {
		step, err := interp.Fire(trigger)
		if err != nil {
			return path, err
		}
		path.Steps = append(path.Steps, step)
	}
	return path, nil
}
