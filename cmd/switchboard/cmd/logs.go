package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/gateway"
	"github.com/jmcleod/switchboard/logs"
)

var (
	logsFollow   bool
	logsInterval time.Duration
	logsSearch   string
	logsStatus   string
)

var errSessionEnded = errors.New("session ended: run \"switchboard login\" again")

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent requests proxied by the gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := logs.Status(logsStatus)
		switch status {
		case "", logs.StatusSuccess, logs.StatusError:
		default:
			return fmt.Errorf("invalid --status %q (expected success or error)", logsStatus)
		}

		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			viewer := c.Logs()
			show := func([]logs.Entry) {
				if err := viewer.Err(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", gateway.Message(err))
				}
				printEntries(cmd.OutOrStdout(), viewer.Search(logsSearch, status))
			}

			if !logsFollow {
				viewer.Fetch(ctx)
				show(nil)
				if err := viewer.Err(); err != nil {
					return userFacing(err)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)
			err := viewer.Follow(ctx, logsInterval, func(entries []logs.Entry) {
				if !c.Session().IsAuthenticated() {
					cancel(errSessionEnded)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n-- %s --\n", time.Now().Format(time.TimeOnly))
				show(entries)
			})
			if cause := context.Cause(ctx); errors.Is(cause, errSessionEnded) {
				return cause
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep polling for new requests")
	logsCmd.Flags().DurationVar(&logsInterval, "interval", logs.DefaultInterval, "Polling interval with --follow")
	logsCmd.Flags().StringVarP(&logsSearch, "search", "q", "", "Only show requests whose model or key name contains this text")
	logsCmd.Flags().StringVar(&logsStatus, "status", "", "Only show requests with this status (success or error)")
	logsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(logsCmd)
}
