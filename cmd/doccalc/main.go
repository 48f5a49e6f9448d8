// Command doccalc evaluates inline calculation directives from the command
// line, from YAML batch files, or continuously while a batch file is edited.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"doccalc/internal/calc"
	"doccalc/internal/config"
	"doccalc/internal/expr"
	"doccalc/internal/logging"
	"doccalc/internal/metrics"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "doccalc",
		Short: "Evaluate inline calculation directives",
		Long: `doccalc evaluates the calc, calc_date and calc_exp directives.

Each directive takes a target (the operation) and parameters given by name
(key=value) or by position. Invalid input yields a short error code such as
NaN, NaD or NaE instead of a value.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags().Changed("config"))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newEvalCmd(a))
	rootCmd.AddCommand(newBatchCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newDirectivesCmd(a))

	return rootCmd
}

// setup loads the configuration and initializes logging. explicit is set
// when the configuration path was given on the command line.
func (a *app) setup(explicit bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Initialize(cfg.Logging.Options()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if _, err := os.Stat(a.configPath); err != nil && explicit {
		logging.BootWarn("configuration %s not readable (%v), using defaults", a.configPath, err)
	} else {
		logging.BootDebug("configuration loaded from %s", a.configPath)
	}
	a.cfg = cfg
	return nil
}

// registry builds the directive registry from the loaded configuration.
func (a *app) registry(m *metrics.Metrics) (*calc.Registry, error) {
	loc, err := a.cfg.GetDefaultZone()
	if err != nil {
		return nil, err
	}
	return calc.NewRegistry(calc.Options{
		Clock:    time.Now,
		Location: loc,
		Engine:   expr.NewEngine(a.cfg.EngineOptions()),
		Metrics:  m,
	}), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
