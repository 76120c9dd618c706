package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"soundframe/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show daemon health, or one session's outcome",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				var status api.SessionStatus
				if err := ctx.getJSON("/api/sessions/"+args[0], &status); err != nil {
					return err
				}
				return printSessionStatus(cmd, status, jsonOutput)
			}

			var status api.DaemonStatus
			if err := ctx.getJSON("/api/status", &status); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			printDaemonStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func printSessionStatus(cmd *cobra.Command, status api.SessionStatus, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(cmd, status)
	}
	out := cmd.OutOrStdout()
	switch status.Status {
	case "complete":
		fmt.Fprintf(out, "Session %s complete\n", status.SessionID)
		if status.Result != nil {
			fmt.Fprintf(out, "  Audio:     %s\n", status.Result.Mix.FinalAudioRef)
			fmt.Fprintf(out, "  Duration:  %s\n", (time.Duration(status.Result.Mix.DurationMS) * time.Millisecond).String())
			fmt.Fprintf(out, "  Narration: %s\n", status.Result.Narration.MainNarration)
		}
	case "failed":
		fmt.Fprintf(out, "Session %s failed\n", status.SessionID)
		if status.Error != nil {
			fmt.Fprintf(out, "  Stage:   %s\n", status.Error.StageLabel)
			fmt.Fprintf(out, "  Message: %s\n", status.Error.Message)
		}
	default:
		fmt.Fprintf(out, "Session %s is still processing\n", status.SessionID)
	}
	return nil
}

func printDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := isTerminalWriter()

	running := statusError
	runningMsg := "daemon is not running"
	if status.Running {
		running = statusOK
		runningMsg = fmt.Sprintf("pid %d", status.PID)
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", running, runningMsg, colorize))
	fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo,
		fmt.Sprintf("%d total, %d processing, %d completed, %d failed",
			status.Sessions.Total, status.Sessions.Processing, status.Sessions.Completed, status.Sessions.Failed),
		colorize))
	fmt.Fprintln(out, renderStatusLine("Active sagas", statusInfo, fmt.Sprintf("%d", status.ActiveSessions), colorize))

	for _, worker := range status.Workers {
		kind := statusOK
		message := fmt.Sprintf("%d handled, %d failed", worker.Handled, worker.Failed)
		if worker.LastError != "" {
			kind = statusWarn
			message += ", last error: " + worker.LastError
		}
		fmt.Fprintln(out, renderStatusLine(worker.StageLabel+" worker", kind, message, colorize))
	}
}

func isTerminalWriter() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
