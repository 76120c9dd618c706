package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAckCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ack <session-id>",
		Short: "Acknowledge a published result, removing it from the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.postJSON("/api/sessions/"+args[0]+"/ack", nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s acknowledged\n", args[0])
			return nil
		},
	}
	return cmd
}
