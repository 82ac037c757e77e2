package application

import (
	"context"
	"errors"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/logging"
)

// SweepReport summarizes a follow-up sweep.
type SweepReport struct {
	// Checked is the number of sent or pending proposals examined.
	Checked int `json:"checked"`

	// Due is the number found due for follow-up.
	Due int `json:"due"`

	// Transitioned is the number moved to a new status.
	Transitioned int `json:"transitioned"`

	// Failed maps proposal ids to the reason their transition failed.
	Failed map[string]tracking.ErrorKind `json:"failed,omitempty"`
}

// CheckAndTransition fires follow-up-due or no-response-detected when the
// proposal is due at now. It reports whether a transition was applied.
// Table guards still apply, so a due proposal may fail with
// ErrGuardNotSatisfied.
func (e *Engine) CheckAndTransition(ctx context.Context, proposalID string, now time.Time) (bool, *tracking.Record, error) {
	var (
		fired  bool
		result *tracking.Record
	)

	err := e.withProposalLock(ctx, proposalID, func(ctx context.Context) error {
		record, err := e.store.Get(ctx, proposalID)
		if err != nil {
			return err
		}
		result = record

		if !e.policy.IsFollowUpDue(record, now) {
			return nil
		}
		trigger, ok := tracking.DueTrigger(record.CurrentStatus)
		if !ok {
			return nil
		}

		updated, err := e.transition(ctx, proposalID, trigger, map[string]any{
			"detectedBy":    "follow-up-detector",
			"followUpCount": record.FollowUpCount,
		}, "", now)
		if err != nil {
			return err
		}

		fired = true
		result = updated
		return nil
	})

	return fired, result, err
}

// Sweep checks every sent and pending proposal at now and transitions the
// due ones. Per-proposal failures are collected in the report; only a
// failure to list records aborts the sweep.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	report := SweepReport{Failed: make(map[string]tracking.ErrorKind)}

	records, err := e.store.List(ctx, tracking.ListFilter{
		Statuses: []tracking.State{tracking.StateSent, tracking.StateFollowUpPending},
	})
	if err != nil {
		return report, err
	}
	report.Checked = len(records)

	due := e.policy.DueRecords(records, now)
	report.Due = len(due)

	dueByStatus := make(map[tracking.State]int)
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		dueByStatus[r.CurrentStatus]++

		fired, _, err := e.CheckAndTransition(ctx, r.ProposalID, now)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Failed[r.ProposalID] = tracking.ReasonOf(err)
		case fired:
			report.Transitioned++
		}
	}

	for status, n := range dueByStatus {
		e.metrics.RecordFollowUpDue(ctx, string(status), n)
	}

	logging.Info().
		Add(logging.Count("checked", report.Checked)).
		Add(logging.Count("due", report.Due)).
		Add(logging.Count("transitioned", report.Transitioned)).
		Add(logging.Count("failed", len(report.Failed))).
		Msg("follow-up sweep finished")

	return report, nil
}
