package main

import (
	"encoding/json"
	"fmt"

	"airmetrics/internal/config"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(rf *rootFlags, lookup config.LookupFunc) *cobra.Command {
	var (
		format   string
		defaults bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Long:  "Print the configuration after defaults, the config file and AIRMETRICS_* variables are applied. Exits non-zero when it does not validate.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if !defaults {
				var err error
				if cfg, err = loadConfig(rf, lookup); err != nil {
					return err
				}
			}
			out, err := marshalConfig(cfg.Redacted(), format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json|toml")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the built-in defaults, ignoring file and environment")
	return cmd
}

func marshalConfig(cfg config.Config, format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "toml":
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unknown format %q: want yaml, json or toml", format)
	}
}
