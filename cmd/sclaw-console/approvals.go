package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/pkg/app"
)

func approvalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Inspect and edit exec approvals",
	}
	cmd.PersistentFlags().String("node", "", "Edit the approvals file of this node instead of the gateway's")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "resolve <agent>",
			Short: "Show the effective approvals of an agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApprovals(cmd, func(a *app.App) error {
					data, err := json.MarshalIndent(a.Session().Approvals.Resolve(args[0]), "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "allow <agent> <pattern>",
			Short: "Add an allowlist pattern for an agent and save",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApprovals(cmd, func(a *app.App) error {
					s := a.Session()
					entry, err := s.Approvals.AddAllowlistEntry(args[0], args[1])
					if err != nil {
						return err
					}
					if err := s.Approvals.Save(cmd.Context()); err != nil {
						return err
					}
					color.Green("Allowed %q for %s (%s)", entry.Pattern, args[0], entry.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <agent> <index>",
			Short: "Remove an allowlist entry by index and save",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := approvals.ParseIndex(args[1])
				if err != nil {
					return err
				}
				return withApprovals(cmd, func(a *app.App) error {
					s := a.Session()
					if err := s.Approvals.RemoveAllowlistEntry(args[0], index); err != nil {
						return err
					}
					if err := s.Approvals.Save(cmd.Context()); err != nil {
						return err
					}
					color.Green("Revoked entry %d for %s", index, args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

// withApprovals opens the console and, with --node, switches the approvals
// store to that node before loading it.
func withApprovals(cmd *cobra.Command, fn func(a *app.App) error) error {
	node, _ := cmd.Flags().GetString("node")
	return withConsole(cmd, func(a *app.App) error {
		if node != "" {
			s := a.Session().Approvals
			if err := s.SetTarget(approvals.Target{Kind: approvals.TargetNode, NodeID: node}); err != nil {
				return err
			}
			if err := s.Load(cmd.Context()); err != nil {
				return err
			}
		}
		return fn(a)
	})
}
