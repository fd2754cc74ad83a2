package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/pkg/app"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List configuration snapshots recorded by the console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withConsole(cmd, func(a *app.App) error {
				entries, err := a.History().List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots recorded.")
					return nil
				}
				cyan := color.New(color.FgCyan)
				for _, e := range entries {
					_, _ = cyan.Fprintf(cmd.OutOrStdout(), "#%-5d", e.ID)
					fmt.Fprintf(cmd.OutOrStdout(), " %s %-6s %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Op, e.Hash)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of snapshots")
	return cmd
}
