package main

import (
	"fmt"
	"time"

	"importguard/internal/guard"
	"importguard/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchDebounce time.Duration

// watchCmd re-checks on every change to a domain module
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check whenever a domain module changes",
	Long: `Runs the check once, then watches the directories holding the domain
modules and re-runs it after each burst of changes. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before re-checking")
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, outFormat, err := newEngine()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	w, err := guard.NewWatcher(engine, func(s *report.Summary, err error) {
		if err != nil {
			logger.Error("Check failed", zap.Error(err))
			fmt.Fprintln(out, "error:", err)
			return
		}
		if rerr := report.Render(out, s, outFormat); rerr != nil {
			logger.Error("Render failed", zap.Error(rerr))
		}
	}, guard.WithDebounce(watchDebounce))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	logger.Info("Watching", zap.Strings("dirs", w.Dirs()))

	<-ctx.Done()
	w.Stop()
	return nil
}
