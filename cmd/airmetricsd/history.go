package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"airmetrics/internal/config"
	"airmetrics/internal/since"
	"airmetrics/pkg/types"

	"github.com/spf13/cobra"
)

func newHistoryCmd(rf *rootFlags, lookup config.LookupFunc) *cobra.Command {
	var (
		sinceExpr string
		sensors   string
		format    string
	)
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Print persisted readings",
		Example: "  airmetricsd history --since 6h\n  airmetricsd history --since now-30m --sensors ds18b20 --format table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := since.Parse(sinceExpr, time.Now())
			if err != nil {
				return err
			}
			if format != "json" && format != "table" {
				return fmt.Errorf("unknown format %q: want json or table", format)
			}
			cfg, err := loadConfig(rf, lookup)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rows, err := st.QuerySince(cmd.Context(), ts)
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}
			rows = filterSensors(rows, splitCSV(sensors))
			if format == "table" {
				return writeTable(cmd.OutOrStdout(), rows)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(types.HistoryResponse{Readings: rows})
		},
	}
	f := cmd.Flags()
	f.StringVar(&sinceExpr, "since", "24h", "Start of the window: unix seconds, <n>h, <n>m, now-<n>h or now-<n>m")
	f.StringVar(&sensors, "sensors", "", "Comma-separated sensor names to keep (default all)")
	f.StringVar(&format, "format", "json", "Output format: json|table")
	return cmd
}

func filterSensors(rows []types.Reading, names []string) []types.Reading {
	out := make([]types.Reading, 0, len(rows))
	if len(names) == 0 {
		return append(out, rows...)
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for _, r := range rows {
		if keep[r.Sensor] {
			out = append(out, r)
		}
	}
	return out
}

func writeTable(w io.Writer, rows []types.Reading) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSENSOR\tTEMPERATURE\tHUMIDITY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			time.Unix(r.TS, 0).UTC().Format(time.RFC3339), r.Sensor, fmtValue(r.Temperature), fmtValue(r.Humidity))
	}
	return tw.Flush()
}

func fmtValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
