package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"importguard/internal/guard"
	"importguard/internal/report"
	"importguard/internal/source"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCmd runs every boundary once
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every boundary once",
	Long: `Evaluates every (domain module, IO module, import kind) combination of
every configured boundary and prints a report.

Exit status is 0 when every case passes, 1 when a forbidden import was
found and 2 when the check could not run (missing module, syntax error,
invalid config).

Example:
  importguard check --root ./service --format table`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// casesCmd lists the cross product without evaluating it
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List the cases that check would evaluate",
	Args:  cobra.NoArgs,
	RunE:  listCases,
}

// newEngine builds an engine from the loaded config.
func newEngine() (*guard.Engine, report.Format, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	outFormat, err := cfg.GetFormat()
	if err != nil {
		return nil, "", err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, "", err
	}
	root, err := cfg.ResolveRoot()
	if err != nil {
		return nil, "", err
	}
	loc, err := source.NewLocator(root)
	if err != nil {
		return nil, "", err
	}
	return guard.NewEngine(loc, rules, guard.WithWorkers(cfg.GetWorkers())), outFormat, nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
}

func runCheck(cmd *cobra.Command, args []string) error {
	engine, outFormat, err := newEngine()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Debug("Running check", zap.String("root", engine.Locator().Root()), zap.Int("cases", len(engine.Cases())))

	summary, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Render(cmd.OutOrStdout(), summary, outFormat); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	logger.Info("Check finished",
		zap.String("run_id", summary.RunID),
		zap.Int("passed", summary.Passed()),
		zap.Int("failed", summary.Failed()))

	if !summary.OK() {
		return errViolations
	}
	return nil
}

func listCases(cmd *cobra.Command, args []string) error {
	engine, _, err := newEngine()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range engine.Cases() {
		fmt.Fprintf(out, "%s\t%s\n", c.Name(), engine.Locator().Locate(c.Domain))
	}
	return nil
}
