package main

import (
	"context"
	"fmt"
	"strings"

	"airmetrics/internal/common/fsutil"
	"airmetrics/internal/config"
	"airmetrics/internal/store"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

// newRootCmd builds the command tree. lookup resolves AIRMETRICS_* variables.
func newRootCmd(lookup config.LookupFunc) *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "airmetricsd",
		Short:         "Sample temperature and humidity sensors, persist and stream the readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&rf.configPath, "config", "c", "", "Config file (.yaml, .json or .toml); defaults AIRMETRICS_CONFIG")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rf.configPath == "" && lookup != nil {
			if v, ok := lookup(config.EnvPrefix + "CONFIG"); ok {
				rf.configPath = strings.TrimSpace(v)
			}
		}
	}

	root.AddCommand(
		newServeCmd(rf, lookup),
		newHistoryCmd(rf, lookup),
		newPruneCmd(rf, lookup),
		newConfigCmd(rf, lookup),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "airmetricsd "+version)
			},
		},
	)
	return root
}

// loadConfig resolves defaults, then the file, then the environment, then
// the --log-level flag. The result is validated.
func loadConfig(rf *rootFlags, lookup config.LookupFunc) (config.Config, error) {
	cfg := config.Default()
	if rf.configPath != "" {
		var err error
		if cfg, err = config.Load(rf.configPath); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if lookup != nil {
		if err := config.ApplyEnv(&cfg, lookup); err != nil {
			return cfg, fmt.Errorf("environment: %w", err)
		}
	}
	if rf.logLevel != "" {
		cfg.Log.Level = rf.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}

func storeOptions(cfg config.Config) (store.Options, error) {
	path := cfg.Database.Path
	if path != "" && path != ":memory:" {
		var err error
		if path, err = fsutil.ExpandHome(path); err != nil {
			return store.Options{}, err
		}
	}
	return store.Options{Driver: cfg.Database.Driver, Path: path, DSN: cfg.Database.DSN}, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	opts, err := storeOptions(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
