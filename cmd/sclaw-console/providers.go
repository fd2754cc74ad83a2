package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/internal/wizard"
	"github.com/flemzord/sclaw-console/pkg/app"
)

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage model providers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured providers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withConsole(cmd, func(a *app.App) error {
					providers := a.Session().Config.Providers()
					cyan := color.New(color.FgCyan)
					for _, id := range a.Session().Config.ProviderIDs() {
						entry, _ := providers[id].(map[string]any)
						_, _ = cyan.Fprintf(cmd.OutOrStdout(), "%-20s", id)
						fmt.Fprintf(cmd.OutOrStdout(), " %v\n", entry["baseUrl"])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add",
			Short: "Add a provider with the interactive wizard and save",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withConsole(cmd, func(a *app.App) error {
					s := a.Session()
					w := wizard.NewSession(s.Config.ProviderIDs())
					if err := wizard.RunForm(cmd.Context(), w, s.Config); err != nil {
						return err
					}
					if err := s.Save(cmd.Context()); err != nil {
						return err
					}
					color.Green("Saved provider %s", w.ID())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a provider and save",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConsole(cmd, func(a *app.App) error {
					s := a.Session()
					if err := s.Config.RemoveProvider(args[0]); err != nil {
						return err
					}
					if err := s.Save(cmd.Context()); err != nil {
						return err
					}
					color.Green("Removed provider %s", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <from> <to>",
			Short: "Rename a provider and save",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConsole(cmd, func(a *app.App) error {
					s := a.Session()
					if err := s.Config.RenameProvider(args[0], args[1]); err != nil {
						return err
					}
					if err := s.Save(cmd.Context()); err != nil {
						return err
					}
					color.Green("Renamed provider %s to %s", args[0], args[1])
					return nil
				})
			},
		},
	)
	return cmd
}
