// Package cli provides the command-line interface of the proposal tracker.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	tracker "github.com/wouldcart/Triplexa2-sub014"
	"github.com/wouldcart/Triplexa2-sub014/domain/config"
	infraconfig "github.com/wouldcart/Triplexa2-sub014/infrastructure/config"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/logging"
)

// Version information set at build time.
var (
	Version   = tracker.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	jsonOutput bool
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "tracker",
		Short: "Automated proposal status transitions",
		Long: `tracker moves travel proposals through their status lifecycle.

Every change is driven by a declared rule table: a trigger moves a proposal
from one status to another when the rule's conditions hold. Successful
transitions are recorded in the proposal history and emitted as workflow
events. The sweep command finds proposals due for follow-up.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := app.root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (defaults to in-memory)")
	flags.StringVar(&app.logLevel, "log-level", "", "Override the configured log level")
	flags.BoolVar(&app.jsonOutput, "json", false, "Output results as JSON")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newRulesCmd(),
		app.newSimulateCmd(),
		app.newCreateCmd(),
		app.newShowCmd(),
		app.newListCmd(),
		app.newTransitionCmd(),
		app.newFeedbackCmd(),
		app.newPaymentCmd(),
		app.newInteractionCmd(),
		app.newSweepCmd(),
		app.newStatsCmd(),
		app.newTimelineCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "tracker version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

// loadConfig reads the --config file, or the in-memory defaults when no
// file was given.
func (a *App) loadConfig() (*config.TrackerConfig, error) {
	var cfg *config.TrackerConfig
	if a.configPath == "" {
		cfg = config.Default()
	} else {
		loader := infraconfig.NewLoader(infraconfig.WithValidation(true))
		loaded, err := loader.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	return cfg, nil
}

// withRuntime loads the configuration, bootstraps the engine, runs fn and
// releases the runtime.
func (a *App) withRuntime(ctx context.Context, fn func(ctx context.Context, rt *Runtime) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	rt, err := Bootstrap(ctx, cfg, a.stderr)
	if err != nil {
		return err
	}

	runErr := fn(ctx, rt)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown: %w", err)
	}
	return runErr
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
