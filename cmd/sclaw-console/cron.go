package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/pkg/app"
)

func cronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage gateway cron jobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cron jobs",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withConsole(cmd, func(a *app.App) error {
					green := color.New(color.FgGreen)
					yellow := color.New(color.FgYellow)
					out := cmd.OutOrStdout()
					now := time.Now()
					for _, j := range a.Session().Cron.Jobs() {
						state := yellow.Sprint("disabled")
						if j.Enabled {
							state = green.Sprint("enabled ")
						}
						next := "-"
						if at, ok := j.NextRun(now); ok {
							next = at.Format(time.RFC3339)
						}
						fmt.Fprintf(out, "%-24s %s %-10s %-28s next %s\n", j.ID, state, j.Schedule.Kind, j.Name, next)
					}
					return nil
				})
			},
		},
		cronActionCmd("run <id>", "Run a job now", func(cmd *cobra.Command, a *app.App, id string) error {
			if err := a.Session().Cron.Run(cmd.Context(), id); err != nil {
				return err
			}
			color.Green("Triggered %s", id)
			return nil
		}),
		cronActionCmd("remove <id>", "Remove a job", func(cmd *cobra.Command, a *app.App, id string) error {
			if err := a.Session().Cron.Remove(cmd.Context(), id); err != nil {
				return err
			}
			color.Green("Removed %s", id)
			return nil
		}),
		cronActionCmd("enable <id>", "Enable a job", func(cmd *cobra.Command, a *app.App, id string) error {
			if _, err := a.Session().Cron.SetEnabled(cmd.Context(), id, true); err != nil {
				return err
			}
			color.Green("Enabled %s", id)
			return nil
		}),
		cronActionCmd("disable <id>", "Disable a job", func(cmd *cobra.Command, a *app.App, id string) error {
			if _, err := a.Session().Cron.SetEnabled(cmd.Context(), id, false); err != nil {
				return err
			}
			color.Yellow("Disabled %s", id)
			return nil
		}),
	)
	return cmd
}

func cronActionCmd(use, short string, fn func(cmd *cobra.Command, a *app.App, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, func(a *app.App) error {
				return fn(cmd, a, args[0])
			})
		},
	}
}
