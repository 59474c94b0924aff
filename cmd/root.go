// Package cmd implements the duckline CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yellowduckie/duckline/internal/app"
	"github.com/yellowduckie/duckline/internal/config"
	"github.com/yellowduckie/duckline/internal/util"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Flags that mirror config keys are also bound to viper in bindFlags.
var globalFlags struct {
	ConfigFile string
	Format     string
	Out        string
	Now        string
	DataDir    string
	LogLevel   string
	Quiet      bool
	Verbose    bool
}

// rootCmd is the base command. Running `duckline` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "duckline",
	Short: "duckline — charts and lookups over the yellow duckie datasets",
	Long: `duckline loads the project's engagement, transaction, price and market
datasets, builds one clean day-resolution series per dataset, and charts,
merges and queries them from the terminal.

Quick start:
  duckline config init              # write a .duckline.yaml template
  duckline datasets list            # what can be loaded
  duckline series get price         # one built series
  duckline merge btc-dominance altcoin-index --window 3m
  duckline explore                  # interactive chart with a cursor`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main. Interrupts cancel the command
// context so long-running commands (watch, explore) shut down cleanly.
func Execute() {
	registerCompletions()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newViper returns a config viper with the global flags bound to their keys.
// A bound flag only wins when it was set on the command line.
func newViper() (*viper.Viper, error) {
	v := config.New(globalFlags.ConfigFile)
	pf := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"format":    "format",
		"data_dir":  "data-dir",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return v, nil
}

// loadConfig resolves config and applies the flags that have no config key.
func loadConfig() (*config.Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	if globalFlags.Now != "" {
		now, err := util.ParseDay(globalFlags.Now)
		if err != nil {
			return nil, fmt.Errorf("--now: %w", err)
		}
		cfg.Now = now
	}
	if cfg.Verbose && cfg.LogLevel == config.DefaultLogLevel {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, nil)
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.ConfigFile, "config", "",
		"config file (default: ./.duckline.yaml, then ~/.duckline.yaml)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Now, "now", "",
		"pin today's date for trailing windows (YYYY-MM-DD)")
	pf.StringVar(&globalFlags.DataDir, "data-dir", "",
		"directory holding local dataset files")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "",
		"log level: debug|info|warn|error (default: warn)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress warnings and status lines")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show load stats after output and log at info level")
}
