package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"soundframe/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var jsonOutput bool
	var wait bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "submit <photo-ref>",
		Short: "Submit a photo for narrative generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SubmitRequest{SessionID: sessionID, PhotoRef: args[0]}
			var resp api.SubmitResponse
			if err := ctx.postJSON("/api/sessions", req, &resp); err != nil {
				return err
			}
			if !wait {
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s accepted\n", resp.SessionID)
				return nil
			}
			return pollUntilTerminal(cmd, ctx, resp.SessionID, pollInterval, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Explicit session identifier (generated when empty)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the session reaches a terminal state")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "Polling interval used with --wait")
	return cmd
}

func pollUntilTerminal(cmd *cobra.Command, ctx *commandContext, sessionID string, interval time.Duration, jsonOutput bool) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var status api.SessionStatus
		if err := ctx.getJSON("/api/sessions/"+sessionID, &status); err != nil {
			return err
		}
		if status.Status != "pending" {
			return printSessionStatus(cmd, status, jsonOutput)
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
