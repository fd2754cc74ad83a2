package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Gateway configuration management",
	}
	cmd.AddCommand(configGetCmd(), configCheckCmd(), configSetGatewayCmd(), configApplyCmd())
	return cmd
}

func configGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the gateway configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			return withConsole(cmd, func(a *app.App) error {
				snap, ok := a.Session().Config.Snapshot()
				if !ok {
					return configsync.ErrNoSnapshot
				}
				data, err := encodeDocument(a.Redactor().RedactDocument(snap.Document), format)
				if err != nil {
					return err
				}
				if out == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := renameio.WriteFile(out, data, 0o600); err != nil {
					return err
				}
				color.Green("Wrote %s (hash %s)", out, snap.Hash)
				return nil
			})
		},
	}
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	cmd.Flags().StringP("out", "o", "", "Write to file atomically instead of stdout")
	return cmd
}

// encodeDocument renders doc as indented JSON or YAML.
func encodeDocument(doc confdoc.Document, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(map[string]any(doc))
	default:
		return nil, fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate the console configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				explicit = args[0]
			}
			path, err := config.Find(explicit)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			color.Green("Configuration OK (%s)", path)
			fmt.Fprintf(cmd.OutOrStdout(), "  gateway: %s\n  http:    %s\n", cfg.Gateway.URL, cfg.HTTP.Bind)
			return nil
		},
	}
}

func configSetGatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-gateway <path> <value>",
		Short: "Set a gateway section field (dotted path) and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, func(a *app.App) error {
				s := a.Session()
				if err := s.Config.SetGatewayField(args[0], parseValue(args[1])); err != nil {
					return err
				}
				if err := s.Save(cmd.Context()); err != nil {
					return err
				}
				color.Green("Saved gateway.%s", args[0])
				return nil
			})
		},
	}
}

// parseValue reads raw as JSON, falling back to a plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func configApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the current configuration and restart the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			delay, _ := cmd.Flags().GetDuration("delay")
			note, _ := cmd.Flags().GetString("note")
			return withConsole(cmd, func(a *app.App) error {
				if err := a.Session().Apply(cmd.Context(), configsync.ApplyOptions{RestartDelay: delay, Note: note}); err != nil {
					return err
				}
				color.Yellow("Applied; gateway restarting in %s", delay)
				return nil
			})
		},
	}
	cmd.Flags().Duration("delay", config.DefaultRestartDelay, "Restart delay")
	cmd.Flags().String("note", "", "Note recorded with the restart")
	return cmd
}
