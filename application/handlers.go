package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/logging"
)

// OnProposalCreated initializes tracking of a new proposal. When the owning
// query is assigned or in progress, proposal-created is fired from the
// query's status. An unknown query, or a query in any other status, leaves
// the record in draft.
func (e *Engine) OnProposalCreated(ctx context.Context, queryID, proposalID string) (*tracking.Record, error) {
	record, err := e.Initialize(ctx, queryID, proposalID)
	if err != nil {
		return nil, err
	}
	if e.queries == nil {
		return record, nil
	}

	q, err := e.queries.GetQuery(ctx, queryID)
	if err != nil {
		if errors.Is(err, query.ErrQueryNotFound) {
			logging.Debug().
				Add(logging.QueryID(queryID)).
				Msg("query unknown, proposal stays in draft")
			return record, nil
		}
		return record, fmt.Errorf("look up query %s: %w", queryID, err)
	}

	source, ok := q.EntryState()
	if !ok {
		return record, nil
	}

	var result *tracking.Record
	err = e.withProposalLock(ctx, proposalID, func(ctx context.Context) error {
		var err error
		result, err = e.transition(ctx, proposalID, tracking.TriggerProposalCreated,
			map[string]any{"queryStatus": string(q.Status)}, source, e.clock())
		return err
	})
	if err != nil {
		return record, err
	}
	return result, nil
}

// OnProposalSent fires proposal-sent.
func (e *Engine) OnProposalSent(ctx context.Context, proposalID, method string) (*tracking.Record, error) {
	return e.Transition(ctx, proposalID, tracking.TriggerProposalSent, map[string]any{
		"method": method,
	})
}

// OnProposalViewed fires proposal-viewed.
func (e *Engine) OnProposalViewed(ctx context.Context, proposalID, clientID, source string) (*tracking.Record, error) {
	return e.Transition(ctx, proposalID, tracking.TriggerProposalViewed, map[string]any{
		"clientId": clientID,
		"source":   source,
	})
}

// OnClientFeedback fires the trigger the feedback kind maps to.
func (e *Engine) OnClientFeedback(ctx context.Context, proposalID string, kind tracking.FeedbackKind) (*tracking.Record, error) {
	trigger, err := kind.Trigger()
	if err != nil {
		return nil, err
	}
	return e.Transition(ctx, proposalID, trigger, map[string]any{
		"feedbackType": string(kind),
	})
}

// OnPaymentReceived records the payment, then fires payment-received. The
// payment is persisted first so the payment guard observes it, and stays
// recorded when the transition fails.
func (e *Engine) OnPaymentReceived(ctx context.Context, proposalID string, amount float64, paymentType tracking.PaymentType) (*tracking.Record, error) {
	var result *tracking.Record
	err := e.withProposalLock(ctx, proposalID, func(ctx context.Context) error {
		now := e.clock()

		record, err := e.store.Get(ctx, proposalID)
		if err != nil {
			if errors.Is(err, tracking.ErrRecordNotFound) {
				return &tracking.TransitionError{
					ProposalID: proposalID,
					Trigger:    tracking.TriggerPaymentReceived,
					Err:        tracking.ErrRecordNotFound,
				}
			}
			return fmt.Errorf("load tracking record %s: %w", proposalID, err)
		}

		next := record.Clone()
		if err := next.AddPayment(amount, paymentType, now); err != nil {
			return err
		}
		if err := e.store.Update(ctx, next); err != nil {
			return fmt.Errorf("persist payment for %s: %w", proposalID, err)
		}

		logging.Info().
			Add(logging.ProposalID(proposalID)).
			Add(logging.Str("payment_type", string(paymentType))).
			Msg("payment recorded")

		result, err = e.transition(ctx, proposalID, tracking.TriggerPaymentReceived, map[string]any{
			"amount": amount,
			"type":   string(paymentType),
		}, "", now)
		return err
	})
	return result, err
}

// RecordClientInteraction stamps a client interaction, such as a reply
// logged by an agent, without changing the status.
func (e *Engine) RecordClientInteraction(ctx context.Context, proposalID string, at time.Time) (*tracking.Record, error) {
	var result *tracking.Record
	err := e.withProposalLock(ctx, proposalID, func(ctx context.Context) error {
		record, err := e.store.Get(ctx, proposalID)
		if err != nil {
			return err
		}

		next := record.Clone()
		next.RecordInteraction(at, e.clock())
		if err := e.store.Update(ctx, next); err != nil {
			return fmt.Errorf("persist interaction for %s: %w", proposalID, err)
		}

		logging.Debug().
			Add(logging.ProposalID(proposalID)).
			Add(logging.Status(next.CurrentStatus)).
			Msg("client interaction recorded")

		result = next
		return nil
	})
	return result, err
}
