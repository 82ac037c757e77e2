// Package application runs the proposal status transition engine: the
// transition executor, domain event handlers and the follow-up detector.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/lock"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/logging"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/telemetry"
)

const tracerName = "github.com/wouldcart/Triplexa2-sub014/application"

// Engine applies rule-driven status transitions to tracking records.
// Transitions of one proposal are serialized; different proposals proceed
// concurrently.
type Engine struct {
	store   tracking.Store
	rules   *tracking.RuleTable
	policy  tracking.FollowUpPolicy
	sink    workflow.Sink
	queries query.Oracle
	locker  lock.Locker
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
	newID   func() string
}

// EngineConfig contains configuration for the engine.
type EngineConfig struct {
	Store   tracking.Store
	Rules   *tracking.RuleTable
	Policy  tracking.FollowUpPolicy
	Sink    workflow.Sink
	Queries query.Oracle
	Locker  lock.Locker
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
	Clock   func() time.Time
	NewID   func() string
}

// NewEngine creates a new engine with the given configuration.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Store == nil {
		return nil, errors.New("store is required")
	}

	e := &Engine{
		store:   config.Store,
		rules:   config.Rules,
		policy:  config.Policy,
		sink:    config.Sink,
		queries: config.Queries,
		locker:  config.Locker,
		metrics: config.Metrics,
		tracer:  config.Tracer,
		clock:   config.Clock,
		newID:   config.NewID,
	}

	// Set defaults
	if e.rules == nil {
		e.rules = tracking.DefaultRuleTable()
	}
	if e.policy == (tracking.FollowUpPolicy{}) {
		e.policy = tracking.DefaultFollowUpPolicy()
	}
	if e.sink == nil {
		e.sink = workflow.Discard
	}
	if e.locker == nil {
		e.locker = lock.NewMemoryLock()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}

	return e, nil
}

// Rules returns the engine's rule table.
func (e *Engine) Rules() *tracking.RuleTable {
	return e.rules
}

// Policy returns the follow-up thresholds.
func (e *Engine) Policy() tracking.FollowUpPolicy {
	return e.policy
}

// Initialize creates the draft tracking record of a new proposal.
func (e *Engine) Initialize(ctx context.Context, queryID, proposalID string) (*tracking.Record, error) {
	record, err := tracking.NewRecord(queryID, proposalID, e.clock())
	if err != nil {
		return nil, err
	}

	if err := e.store.Save(ctx, record); err != nil {
		if errors.Is(err, tracking.ErrRecordExists) {
			logging.Warn().
				Add(logging.ProposalID(proposalID)).
				Add(logging.QueryID(queryID)).
				Msg("tracking already initialized")
		}
		return nil, err
	}

	logging.Info().
		Add(logging.ProposalID(proposalID)).
		Add(logging.QueryID(queryID)).
		Add(logging.Status(record.CurrentStatus)).
		Msg("tracking initialized")

	return record.Clone(), nil
}

// Transition fires trigger on a proposal. Metadata is recorded in the
// history entry and merged into the workflow event.
//
// Recoverable failures are returned as *tracking.TransitionError and leave
// the stored record untouched.
func (e *Engine) Transition(ctx context.Context, proposalID string, trigger tracking.Trigger, metadata map[string]any) (*tracking.Record, error) {
	var result *tracking.Record
	err := e.withProposalLock(ctx, proposalID, func(ctx context.Context) error {
		var err error
		result, err = e.transition(ctx, proposalID, trigger, metadata, "", e.clock())
		return err
	})
	return result, err
}

func (e *Engine) withProposalLock(ctx context.Context, proposalID string, fn func(ctx context.Context) error) error {
	return e.locker.WithLock(ctx, "proposal:"+proposalID, fn)
}

// transition must run under the proposal lock. A non-empty source replaces
// the record status when matching rules.
func (e *Engine) transition(ctx context.Context, proposalID string, trigger tracking.Trigger, metadata map[string]any, source tracking.State, now time.Time) (*tracking.Record, error) {
	started := time.Now()

	ctx, span := e.tracer.Start(ctx, "tracker.transition", trace.WithAttributes(
		attribute.String("proposal.id", proposalID),
		attribute.String("trigger", string(trigger)),
	))
	defer span.End()

	record, err := e.store.Get(ctx, proposalID)
	if err != nil {
		if errors.Is(err, tracking.ErrRecordNotFound) {
			return nil, e.reject(ctx, span, &tracking.TransitionError{
				ProposalID: proposalID,
				Trigger:    trigger,
				Err:        tracking.ErrRecordNotFound,
			})
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("load tracking record %s: %w", proposalID, err)
	}

	from := record.CurrentStatus
	if source != "" {
		from = source
	}
	span.SetAttributes(attribute.String("status.from", string(from)))

	rule, ok := e.rules.Match(from, trigger)
	if !ok {
		return nil, e.reject(ctx, span, &tracking.TransitionError{
			ProposalID: proposalID,
			Trigger:    trigger,
			From:       from,
			Err:        tracking.ErrNoApplicableRule,
		})
	}

	if ok, condition := tracking.Evaluate(record, rule.Guard, now); !ok {
		return nil, e.reject(ctx, span, &tracking.TransitionError{
			ProposalID: proposalID,
			Trigger:    trigger,
			From:       from,
			Condition:  condition,
			Err:        tracking.ErrGuardNotSatisfied,
		})
	}

	next := record.Clone()
	next.Apply(rule, trigger, now, metadata)

	if err := e.store.Update(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		logging.Error().
			Add(logging.ProposalID(proposalID)).
			Add(logging.Trigger(trigger)).
			Add(logging.ErrorField(err)).
			Msg("failed to persist transition")
		return nil, fmt.Errorf("persist tracking record %s: %w", proposalID, err)
	}

	span.SetAttributes(attribute.String("status.to", string(rule.To)))
	e.emit(ctx, next, from, rule.To, trigger, metadata, now)
	e.metrics.RecordTransition(ctx, string(from), string(rule.To), string(trigger), time.Since(started))

	logging.Info().
		Add(logging.ProposalID(proposalID)).
		Add(logging.QueryID(next.QueryID)).
		Add(logging.FromStatus(from)).
		Add(logging.ToStatus(rule.To)).
		Add(logging.Trigger(trigger)).
		Add(logging.Duration(time.Since(started))).
		Msg("proposal status changed")

	return next.Clone(), nil
}

// reject logs and counts a recoverable failure.
func (e *Engine) reject(ctx context.Context, span trace.Span, terr *tracking.TransitionError) error {
	kind := tracking.ReasonOf(terr)
	span.SetAttributes(attribute.String("failure.reason", string(kind)))

	ev := logging.Warn().
		Add(logging.ProposalID(terr.ProposalID)).
		Add(logging.Trigger(terr.Trigger)).
		Add(logging.Kind(kind))
	if terr.From != "" {
		ev.Add(logging.FromStatus(terr.From))
	}
	if terr.Condition != "" {
		ev.Add(logging.Reason(terr.Condition))
	}
	ev.Msg("transition rejected")

	e.metrics.RecordTransitionFailure(ctx, string(kind), string(terr.Trigger))
	return terr
}

// emit appends the status change to the sink. Sink failures never undo
// the transition.
func (e *Engine) emit(ctx context.Context, record *tracking.Record, from, to tracking.State, trigger tracking.Trigger, metadata map[string]any, now time.Time) {
	event := workflow.NewStatusChanged(e.newID(), record.QueryID, record.ProposalID, from, to, trigger, metadata, now)
	if err := e.sink.Append(ctx, event); err != nil {
		e.metrics.RecordSinkFailure(ctx, 1)
		logging.Error().
			Add(logging.ProposalID(record.ProposalID)).
			Add(logging.QueryID(record.QueryID)).
			Add(logging.Str("event_id", event.ID)).
			Add(logging.ErrorField(err)).
			Msg("failed to append workflow event")
	}
}
