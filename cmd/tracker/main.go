// Command tracker queues and delivers analytics events from the shell.
//
// Events are queued in the configured storage backend by "track" and "engage" and delivered by
// "flush", so a cron job or CI step can record events without network access and ship them
// later. "inspect" prints the persisted queue and "prune" removes stale snapshots.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
