package main

import (
	"errors"
	"fmt"
	"os"

	"importguard/internal/config"
	"importguard/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errViolations signals a completed run that found forbidden imports.
// The report has already been rendered when it is returned.
var errViolations = errors.New("forbidden imports found")

var (
	// Global flags
	verbose    bool
	configPath string
	rootDir    string
	format     string
	workers    int

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "importguard",
	Short: "Check that domain modules never import IO modules",
	Long: `importguard statically verifies a dependency-direction rule in a Python
code base: modules designated as domain code must not import modules
designated as IO code.

Only module-level import statements are inspected. Imports inside
functions or classes, transitive imports and runtime behaviour are out
of scope.

Boundaries are read from importguard.yaml; without one the default
boundary (api.core, api.predicates, api.query must not import api.file
or api.main) is checked.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.Build(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger, cfg.Logging.Categories)
		logging.BootDebug("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		c.Root = rootDir
		c.RootLevels = 0
	}
	if flags.Changed("format") {
		c.Format = format
	}
	if flags.Changed("workers") {
		c.Workers = workers
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "Repository root (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "Output format: text, table, json")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "j", 0, "Concurrent checks (0 = one per CPU)")

	rootCmd.AddCommand(checkCmd, casesCmd, watchCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errViolations) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}
