package main

import (
	"fmt"

	"airmetrics/internal/config"
	"airmetrics/internal/logging"
	"airmetrics/internal/pipeline"

	"github.com/spf13/cobra"
)

func newPruneCmd(rf *rootFlags, lookup config.LookupFunc) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete readings older than the retention window once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rf, lookup)
			if err != nil {
				return err
			}
			if hours > 0 {
				cfg.Retention.Hours = hours
			}
			log, closer := logging.New(logOptions(cfg.Log))
			defer closer.Close()

			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sweeper := pipeline.NewRetentionSweeper(pipeline.RetentionConfig{
				Store:  st,
				Hours:  cfg.Retention.Hours,
				Logger: log,
			})
			n, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d readings older than %dh\n", n, cfg.Retention.Hours)
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "Retention window in hours (default from config)")
	return cmd
}
