package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/velmie/tracker"
)

func newFlushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Deliver the queued events",
		Long: `Deliver the persisted queue in batches of at most 50 events. Batches the backend does not
accept stay queued for the next flush; the command then exits with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, release, err := a.newClient(ctx, false, "")
			if err != nil {
				return err
			}
			defer release()

			flushErr := client.Flush(ctx)
			if restoreErr := client.RestoreErr(); restoreErr != nil {
				a.logger.Warn("persisted queue could not be restored", "err", restoreErr)
			}
			for _, kind := range tracker.Kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pending\n", kind, client.Queued(kind))
			}
			if errors.Is(flushErr, tracker.ErrTransport) {
				return a.failure("some events were not delivered")
			}
			return flushErr
		},
	}
}
