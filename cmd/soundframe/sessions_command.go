package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soundframe/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List known sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list api.SessionListResponse
			if err := ctx.getJSON("/api/sessions", &list); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list.Sessions) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}

			rows := make([][]string, 0, len(list.Sessions))
			for _, sess := range list.Sessions {
				rows = append(rows, []string{
					sess.SessionID,
					sess.PhotoRef,
					sess.StatusLabel,
					sess.Failure,
					yesNo(sess.Published),
					sess.UpdatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Photo", "Status", "Failure", "Published", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
