package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/statemachine"
)

func (a *App) newRulesCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the transition rules",
		Long: `List the declared transition rules in matching order.

The first rule whose source status and trigger match wins. Conditions must
all hold for the rule to apply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := tracking.DefaultRules()
			if from != "" {
				state, err := tracking.ParseState(from)
				if err != nil {
					return err
				}
				filtered := rules[:0]
				for _, r := range rules {
					if r.From == state {
						filtered = append(filtered, r)
					}
				}
				rules = filtered
			}

			if a.jsonOutput {
				return a.printJSON(rules)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tTRIGGER\tTO\tCONDITIONS")
			for _, r := range rules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.From, r.Trigger, r.To, describeGuard(r.Guard))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Only rules leaving this status")

	return cmd
}

func describeGuard(g *tracking.Guard) string {
	if g == nil {
		return "-"
	}

	var parts []string
	if g.DaysSinceLastActivity != nil {
		parts = append(parts, fmt.Sprintf("quiet>=%dd", *g.DaysSinceLastActivity))
	}
	if g.FollowUpCount != nil {
		parts = append(parts, fmt.Sprintf("followUps>=%d", *g.FollowUpCount))
	}
	if g.ClientResponseRequired {
		parts = append(parts, "clientResponse")
	}
	if g.PaymentReceived {
		parts = append(parts, "payment")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// simulateOptions holds options for the simulate command.
type simulateOptions struct {
	from       string
	proposalID string
}

func (a *App) newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <trigger>...",
		Short: "Dry-run triggers through the lifecycle chart",
		Long: `Fire triggers through the lifecycle chart without touching any record.

With --proposal the simulation starts from the stored record and evaluates
rule conditions against it. Otherwise it starts from --from and ignores
conditions.

Examples:
  tracker simulate proposal-sent proposal-viewed client-interested
  tracker simulate --from proposal-viewed client-feedback proposal-sent
  tracker simulate -c tracker.yaml --proposal P-17 payment-received`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			triggers := make([]tracking.Trigger, 0, len(args))
			for _, arg := range args {
				trigger, err := tracking.ParseTrigger(arg)
				if err != nil {
					return err
				}
				triggers = append(triggers, trigger)
			}

			if opts.proposalID != "" {
				return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
					record, err := rt.Engine.GetTracking(ctx, opts.proposalID)
					if err != nil {
						return err
					}
					path, err := statemachine.Replay(record, timeNow(), triggers...)
					return a.printPath(path, err)
				})
			}

			start, err := tracking.ParseState(opts.from)
			if err != nil {
				return err
			}
			path, err := statemachine.Simulate(start, triggers...)
			return a.printPath(path, err)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", string(tracking.StateDraft), "Status to start from")
	cmd.Flags().StringVar(&opts.proposalID, "proposal", "", "Start from the stored record of this proposal")

	return cmd
}

// printPath prints the path walked so far, then the refusal if any.
func (a *App) printPath(path statemachine.Path, simErr error) error {
	if a.jsonOutput {
		if err := a.printJSON(path); err != nil {
			return err
		}
		return simErr
	}

	fmt.Fprintf(a.stdout, "start: %s\n", path.Start)
	for _, step := range path.Steps {
		fmt.Fprintf(a.stdout, "  --%s--> %s\n", step.Trigger, step.To)
	}
	if simErr != nil {
		return fmt.Errorf("simulation stopped at %s: %w", path.End(), simErr)
	}
	fmt.Fprintf(a.stdout, "end: %s\n", path.End())
	return nil
}
