package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wouldcart/Triplexa2-sub014/application"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
)

// sweepOptions holds options for the sweep command.
type sweepOptions struct {
	apply bool
	now   string
}

func (a *App) newSweepCmd() *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find proposals due for follow-up",
		Long: `List sent and follow-up-pending proposals that are due for a proactive
transition. With --apply the due transitions are fired.

The sweep is idempotent and meant to be run on a schedule, for example
hourly from cron.

Examples:
  tracker sweep -c tracker.yaml
  tracker sweep -c tracker.yaml --apply
  tracker sweep -c tracker.yaml --now 2026-07-01T09:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseNow(opts.now)
			if err != nil {
				return err
			}

			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				if opts.apply {
					report, err := rt.Engine.Sweep(ctx, now)
					if err != nil {
						return err
					}
					return a.printSweepReport(report)
				}

				due, err := rt.Engine.GetProposalsNeedingFollowUp(ctx, now)
				if err != nil {
					return err
				}
				return a.printDue(due)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Fire the due transitions")
	cmd.Flags().StringVar(&opts.now, "now", "", "Evaluate at this time (RFC3339, defaults to now)")

	return cmd
}

func (a *App) printDue(due []*tracking.Record) error {
	if a.jsonOutput {
		return a.printJSON(due)
	}
	if len(due) == 0 {
		fmt.Fprintln(a.stdout, "No proposals due for follow-up")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPOSAL\tQUERY\tSTATUS\tFOLLOW-UPS\tNEXT TRIGGER")
	for _, r := range due {
		trigger, _ := tracking.DueTrigger(r.CurrentStatus)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ProposalID, r.QueryID, r.CurrentStatus, r.FollowUpCount, trigger)
	}
	return w.Flush()
}

func (a *App) printSweepReport(report application.SweepReport) error {
	if a.jsonOutput {
		return a.printJSON(report)
	}

	fmt.Fprintf(a.stdout, "Checked: %d\n", report.Checked)
	fmt.Fprintf(a.stdout, "Due: %d\n", report.Due)
	fmt.Fprintf(a.stdout, "Transitioned: %d\n", report.Transitioned)
	if len(report.Failed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(a.stdout, "Failed: %d\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(a.stdout, "  %s: %s\n", id, report.Failed[id])
	}
	return nil
}

func (a *App) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show proposal statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				stats, err := rt.Engine.GetProposalStats(ctx)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(stats)
				}

				fmt.Fprintf(a.stdout, "Total proposals: %d\n", stats.Total)
				fmt.Fprintf(a.stdout, "Avg hours sent to viewed: %.1f\n", stats.AvgHoursSentToViewed)
				fmt.Fprintf(a.stdout, "Conversion rate: %.1f%%\n", stats.ConversionRate)
				fmt.Fprintf(a.stdout, "\nBy status:\n")
				for _, st := range tracking.AllStates() {
					if n := stats.ByStatus[st]; n > 0 {
						fmt.Fprintf(a.stdout, "  %-24s %d\n", st, n)
					}
				}
				return nil
			})
		},
	}
}
