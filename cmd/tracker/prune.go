package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/velmie/tracker/mysql"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		retention  time.Duration
		keep       []string
		limit      int
		loop       bool
		checkEvery time.Duration
		lockName   string
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots that stopped being written",
		Long: `Delete stored keys whose last write is older than --retention, such as queues of retired
installations and quarantined ".corrupt" copies. The configured storage key is always kept.
Supported for the sqlite and mysql backends; mysql runs under an advisory lock and can loop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if retention <= 0 {
				return errors.New("--retention must be positive")
			}
			keep = append(keep, a.cfg.StorageKey)

			ctx := cmd.Context()
			store, err := openBackend(ctx, a.cfg.Storage)
			if err != nil {
				return fmt.Errorf("open %s storage: %w", a.cfg.Storage.Backend, err)
			}
			defer func() { _ = store.Close() }()

			switch {
			case store.sqlite != nil:
				if loop {
					return errors.New("--loop is supported for the mysql backend only")
				}
				deleted, err := store.sqlite.Prune(ctx, time.Now().Add(-retention), keep...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d keys\n", deleted)
				return nil
			case store.mysql != nil:
				maintainer, err := mysql.NewPruneMaintainer(store.db, mysql.PruneMaintainerConfig{
					Table:      a.cfg.Storage.Table,
					Retention:  retention,
					CheckEvery: checkEvery,
					Limit:      limit,
					Keep:       keep,
					LockName:   lockName,
					Logger:     a.logger,
				})
				if err != nil {
					return fmt.Errorf("init maintainer: %w", err)
				}
				if loop {
					if err := maintainer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						return fmt.Errorf("run maintainer: %w", err)
					}
					return nil
				}
				res, err := maintainer.Ensure(ctx)
				if err != nil {
					return fmt.Errorf("prune: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d keys\n", res.Deleted)
				return nil
			default:
				return fmt.Errorf("prune is not supported for the %s backend", a.cfg.Storage.Backend)
			}
		},
	}

	cmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "delete keys not written for this long")
	cmd.Flags().StringArrayVar(&keep, "keep", nil, "key that is never deleted (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max keys deleted per mysql run (0 uses the default)")
	cmd.Flags().BoolVar(&loop, "loop", false, "keep pruning every --check-every until interrupted (mysql)")
	cmd.Flags().DurationVar(&checkEvery, "check-every", time.Hour, "interval between runs with --loop")
	cmd.Flags().StringVar(&lockName, "lock-name", "", "advisory lock name (mysql)")

	return cmd
}
