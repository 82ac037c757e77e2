package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/wouldcart/Triplexa2-sub014/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict bool
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a configuration file",
		Long: `Validate a tracker configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Storage backend and its connection settings
  - Event sink, retry and buffering settings
  - Follow-up thresholds
  - Seeded query statuses
  - Environment variable references (in strict mode)

Examples:
  tracker validate tracker.yaml
  tracker validate -c tracker.yaml --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) > 0 {
				path = args[0]
			}
			return a.validateConfig(path, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on unset environment variables")

	return cmd
}

func (a *App) validateConfig(path string, opts *validateOptions) error {
	if path == "" {
		return fmt.Errorf("configuration file path is required")
	}

	loader := infraconfig.NewLoader(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(opts.strict),
	)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Storage: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(a.stdout, "  Event sink: %s\n", cfg.Events.Sink)
	if cfg.Events.BufferSize > 0 {
		fmt.Fprintf(a.stdout, "  Event buffer: %d\n", cfg.Events.BufferSize)
	}
	if cfg.Events.Retry.MaxAttempts > 0 {
		fmt.Fprintf(a.stdout, "  Delivery retries: %d\n", cfg.Events.Retry.MaxAttempts)
	}
	fmt.Fprintf(a.stdout, "  Follow-up: first after %dd, escalate after %dd, give up after %dd (max %d)\n",
		cfg.FollowUp.SentAfterDays, cfg.FollowUp.EscalateAfterDays,
		cfg.FollowUp.NoResponseAfterDays, cfg.FollowUp.MaxFollowUps)
	if cfg.Tracing.Enabled {
		fmt.Fprintf(a.stdout, "  Tracing: %s (sample rate %.2f)\n", cfg.Tracing.Exporter, cfg.Tracing.SampleRate)
	}
	if len(cfg.Queries) > 0 {
		fmt.Fprintf(a.stdout, "  Seeded queries: %d\n", len(cfg.Queries))
	}

	return nil
}
