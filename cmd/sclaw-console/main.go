// Package main is the entry point for the sclaw-console CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sclaw-console",
		Short:         "Admin console for an sclaw gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.AddCommand(
		versionCmd(),
		serveCmd(),
		statusCmd(),
		configCmd(),
		providersCmd(),
		approvalsCmd(),
		cronCmd(),
		historyCmd(),
		callCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("sclaw-console %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the console HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				LogLevel:   logLevel(cmd),
			})
		},
	}
}

func logLevel(cmd *cobra.Command) slog.Level {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// openConsole builds the application for a one-shot command and loads
// the session. The caller must Stop it.
func openConsole(cmd *cobra.Command) (*app.App, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, _, err := app.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if logLevel(cmd) == slog.LevelDebug {
		level = slog.LevelDebug
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, app.Options{Config: cfg, Version: version, LogLevel: level})
	if err != nil {
		return nil, err
	}
	if err := a.Load(ctx); err != nil {
		_ = a.Stop(context.Background())
		return nil, err
	}
	return a, nil
}

// withConsole runs fn against a loaded console and releases it afterwards.
func withConsole(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Stop(context.Background()) }()
	return fn(a)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the gateway configuration state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConsole(cmd, func(a *app.App) error {
				printStatus(cmd, a)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, a *app.App) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	out := cmd.OutOrStdout()
	st := a.Session().Status()
	_, _ = cyan.Fprintf(out, "Config:    ")
	fmt.Fprintln(out, st.Path)
	_, _ = cyan.Fprintf(out, "Hash:      ")
	fmt.Fprintln(out, st.Hash)
	_, _ = cyan.Fprintf(out, "Valid:     ")
	if st.Valid {
		_, _ = green.Fprintln(out, "yes")
	} else {
		_, _ = yellow.Fprintf(out, "no (%d issues)\n", len(st.Issues))
		for _, is := range st.Issues {
			fmt.Fprintf(out, "  - %s\n", is)
		}
	}
	_, _ = cyan.Fprintf(out, "Approvals: ")
	fmt.Fprintf(out, "%s (loaded=%t)\n", st.ApprovalsTarget, st.ApprovalsLoaded)
}
