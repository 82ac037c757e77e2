package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// timeNow is the clock used for --now defaults.
var timeNow = time.Now

func (a *App) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <query-id> <proposal-id>",
		Short: "Start tracking a new proposal",
		Long: `Start tracking a new proposal in draft.

When the query is known to be assigned or in progress, the proposal-created
transition is fired from the query status.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				record, err := rt.Engine.OnProposalCreated(ctx, args[0], args[1])
				if record != nil {
					if perr := a.printRecord(record); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func (a *App) newShowCmd() *cobra.Command {
	var byQuery bool

	cmd := &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show the tracking record of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				var (
					record *tracking.Record
					err    error
				)
				if byQuery {
					record, err = rt.Engine.GetTrackingByQueryID(ctx, args[0])
				} else {
					record, err = rt.Engine.GetTracking(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return a.printRecord(record)
			})
		},
	}

	cmd.Flags().BoolVar(&byQuery, "query", false, "Treat the argument as a query id")

	return cmd
}

func (a *App) newListCmd() *cobra.Command {
	var (
		statuses []string
		queryID  string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := tracking.ListFilter{QueryID: queryID, Limit: limit, Offset: offset}
			for _, s := range statuses {
				state, err := tracking.ParseState(s)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, state)
			}

			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				records, err := rt.Engine.ListTracking(ctx, filter)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(records)
				}

				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PROPOSAL\tQUERY\tSTATUS\tFOLLOW-UPS\tUPDATED")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						r.ProposalID, r.QueryID, r.CurrentStatus, r.FollowUpCount, r.UpdatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only these statuses")
	cmd.Flags().StringVar(&queryID, "query", "", "Only proposals of this query")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")

	return cmd
}

func (a *App) newTransitionCmd() *cobra.Command {
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "transition <proposal-id> <trigger>",
		Short: "Fire a trigger on a proposal",
		Long: `Fire a trigger on a proposal.

Examples:
  tracker transition P-17 proposal-sent --meta method=email
  tracker transition P-17 booking-completed`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := tracking.ParseTrigger(args[1])
			if err != nil {
				return err
			}

			metadata := make(map[string]any, len(meta)+1)
			for k, v := range meta {
				metadata[k] = v
			}
			metadata["source"] = "cli"

			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				record, err := rt.Engine.Transition(ctx, args[0], trigger, metadata)
				if err != nil {
					return err
				}
				return a.printRecord(record)
			})
		},
	}

	cmd.Flags().StringToStringVar(&meta, "meta", nil, "Metadata recorded with the transition (key=value)")

	return cmd
}

func (a *App) newFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "feedback <proposal-id> <interested|modification-requested|negotiation|rejection>",
		Short:     "Record client feedback on a proposal",
		Args:      cobra.ExactArgs(2),
		ValidArgs: feedbackNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				record, err := rt.Engine.OnClientFeedback(ctx, args[0], tracking.FeedbackKind(args[1]))
				if err != nil {
					return err
				}
				return a.printRecord(record)
			})
		},
	}
}

func feedbackNames() []string {
	kinds := tracking.FeedbackKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func (a *App) newPaymentCmd() *cobra.Command {
	var paymentType string

	cmd := &cobra.Command{
		Use:   "pay <proposal-id> <amount>",
		Short: "Record a payment against a proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				record, err := rt.Engine.OnPaymentReceived(ctx, args[0], amount, tracking.PaymentType(paymentType))
				if err != nil {
					return err
				}
				return a.printRecord(record)
			})
		},
	}

	cmd.Flags().StringVar(&paymentType, "type", string(tracking.PaymentAdvance), "Payment type (advance or full-payment)")

	return cmd
}

func (a *App) newInteractionCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "interaction <proposal-id>",
		Short: "Record a client interaction without a status change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseNow(at)
			if err != nil {
				return err
			}

			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				record, err := rt.Engine.RecordClientInteraction(ctx, args[0], when)
				if err != nil {
					return err
				}
				return a.printRecord(record)
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Interaction time (RFC3339, defaults to now)")

	return cmd
}

func parseNow(s string) (time.Time, error) {
	if s == "" {
		return timeNow(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

func (a *App) printRecord(r *tracking.Record) error {
	if a.jsonOutput {
		return a.printJSON(r)
	}

	fmt.Fprintf(a.stdout, "Proposal: %s\n", r.ProposalID)
	fmt.Fprintf(a.stdout, "Query:    %s\n", r.QueryID)
	fmt.Fprintf(a.stdout, "Status:   %s\n", r.CurrentStatus)
	if r.ProposalSentDate != nil {
		fmt.Fprintf(a.stdout, "Sent:     %s\n", r.ProposalSentDate.Format(time.RFC3339))
	}
	if r.ProposalViewedDate != nil {
		fmt.Fprintf(a.stdout, "Viewed:   %s\n", r.ProposalViewedDate.Format(time.RFC3339))
	}
	if r.FollowUpCount > 0 {
		fmt.Fprintf(a.stdout, "Follow-ups: %d\n", r.FollowUpCount)
	}
	if len(r.PaymentHistory) > 0 {
		fmt.Fprintf(a.stdout, "Paid:     %.2f (%d payments)\n", r.TotalPaid(), len(r.PaymentHistory))
	}

	fmt.Fprintf(a.stdout, "\nHistory:\n")
	for _, h := range r.StatusHistory {
		fmt.Fprintf(a.stdout, "  %s  %-24s %s\n", h.Timestamp.Format(time.RFC3339), h.Status, h.TriggeredBy)
	}
	return nil
}
