package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velmie/tracker"
)

func newTrackCmd(a *app) *cobra.Command {
	var (
		props      []string
		ip         string
		insertID   string
		distinctID string
		now        bool
	)

	cmd := &cobra.Command{
		Use:   "track NAME",
		Short: "Queue a named event",
		Example: `  tracker track signup --prop plan=pro --prop seats=3
  tracker track deploy --distinct-id ci --now`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseProps(props)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, release, err := a.newClient(ctx, now, distinctID)
			if err != nil {
				return err
			}
			defer release()

			if !client.Track(ctx, args[0], values, tracker.TrackOptions{IP: ip, InsertID: insertID}) {
				return a.failure("event not recorded")
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome(now, tracker.KindTrack, client))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&props, "prop", "p", nil, "property as key=value; JSON values keep their type")
	cmd.Flags().StringVar(&ip, "ip", "", "client ip")
	cmd.Flags().StringVar(&insertID, "insert-id", "", "deduplication id (generated when empty)")
	cmd.Flags().StringVar(&distinctID, "distinct-id", "", "user distinct id")
	cmd.Flags().BoolVar(&now, "now", false, "send immediately instead of queueing")

	return cmd
}

func newEngageCmd(a *app) *cobra.Command {
	var (
		props       []string
		ip          string
		distinctID  string
		ignoreTime  bool
		ignoreAlias bool
		now         bool
	)

	cmd := &cobra.Command{
		Use:   "engage OPERATION",
		Short: "Queue a profile update",
		Long: `Queue a profile update. OPERATION is one of set, set_once, add, append, union, remove,
unset or delete, with or without the leading "$".`,
		Example: `  tracker engage set --distinct-id u1 --prop plan=pro
  tracker engage unset --distinct-id u1 --prop plan=
  tracker engage delete --distinct-id u1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := tracker.EngageOperation("$" + strings.TrimPrefix(args[0], "$"))
			if !op.Valid() {
				return fmt.Errorf("unknown operation %q", args[0])
			}
			values, err := parseProps(props)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, release, err := a.newClient(ctx, now, distinctID)
			if err != nil {
				return err
			}
			defer release()

			opts := tracker.EngageOptions{IP: ip, IgnoreTime: ignoreTime, IgnoreAlias: ignoreAlias}
			if !client.Engage(ctx, op, values, opts) {
				return a.failure("profile update not recorded")
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome(now, tracker.KindEngage, client))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&props, "prop", "p", nil, "property as key=value; JSON values keep their type")
	cmd.Flags().StringVar(&ip, "ip", "", "client ip")
	cmd.Flags().StringVar(&distinctID, "distinct-id", "", "user distinct id")
	cmd.Flags().BoolVar(&ignoreTime, "ignore-time", false, "do not update last seen")
	cmd.Flags().BoolVar(&ignoreAlias, "ignore-alias", false, "do not resolve aliases")
	cmd.Flags().BoolVar(&now, "now", false, "send immediately instead of queueing")

	return cmd
}

func outcome(now bool, kind tracker.Kind, client *tracker.Client) string {
	if now {
		return "sent"
	}

	return fmt.Sprintf("queued (%d %s events pending)", client.Queued(kind), kind)
}
