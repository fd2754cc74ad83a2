package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/sclaw-console/pkg/app"
)

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Send a raw RPC request to the gateway and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
					return fmt.Errorf("params: %w", err)
				}
			}
			return withConsole(cmd, func(a *app.App) error {
				var result json.RawMessage
				if err := a.Caller().Call(cmd.Context(), args[0], params, &result); err != nil {
					return err
				}
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.Redactor().Redact(string(out)))
				return nil
			})
		},
	}
}
