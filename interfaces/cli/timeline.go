package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wouldcart/Triplexa2-sub014/application"
)

func (a *App) newTimelineCmd() *cobra.Command {
	var (
		proposalID string
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "timeline <query-id>",
		Short: "Show the workflow events of a query",
		Long: `Show the status changes recorded in a query's workflow log.

With --verify every change is checked against the rule table and each
proposal's changes must chain. Requires a readable event sink (memory or
sqlite).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *Runtime) error {
				if rt.Events == nil {
					return errors.New("the configured event sink cannot be read back")
				}

				tl, err := application.NewReplay(rt.Events, rt.Engine.Rules()).Timeline(ctx, args[0])
				if err != nil {
					return err
				}

				transitions := tl.Transitions(proposalID)
				if a.jsonOutput {
					if err := a.printJSON(transitions); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(a.stdout, "Query %s: %d events over %s\n", tl.QueryID, tl.Len(), tl.Duration().Round(time.Second))
					for _, tr := range transitions {
						fmt.Fprintf(a.stdout, "  %s  %s  %s --%s--> %s\n",
							tr.At.Format(time.RFC3339), tr.ProposalID, tr.From, tr.Trigger, tr.To)
					}
				}

				if verify {
					if err := tl.Verify(); err != nil {
						return fmt.Errorf("timeline inconsistent: %w", err)
					}
					if !a.jsonOutput {
						fmt.Fprintln(a.stdout, "✓ Timeline is consistent with the rule table")
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&proposalID, "proposal", "", "Only changes of this proposal")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the changes against the rule table")

	return cmd
}
