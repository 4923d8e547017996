package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/velmie/tracker"
)

// queueInterval keeps the scheduler idle during a CLI run; delivery happens in "flush".
const queueInterval = 24 * time.Hour

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	logger  *slog.Logger

	mu      sync.Mutex
	lastErr error
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "tracker",
		Short: "Queue and deliver analytics events",
		Long: `tracker records track and engage events into a durable local queue and delivers
them in batches of at most 50 events per request.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./tracker.yaml or $XDG_CONFIG_HOME/tracker/tracker.yaml)")
	flags.String("token", "", "project token")
	flags.String("base-url", "", "ingestion endpoint root")
	flags.String("backend", "", "storage backend: memory, pebble, sqlite, redis, mysql")
	flags.String("path", "", "pebble directory or sqlite file")
	flags.String("storage-key", "", "key the queue snapshot is stored under")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	bindFlags(a.v, flags, map[string]string{
		"token":           "token",
		"base_url":        "base-url",
		"storage.backend": "backend",
		"storage.path":    "path",
		"storage_key":     "storage-key",
		"log_level":       "log-level",
	})

	root.AddCommand(
		newTrackCmd(a),
		newEngageCmd(a),
		newFlushCmd(a),
		newInspectCmd(a),
		newPruneCmd(a),
	)

	return root
}

func (a *app) report(_ context.Context, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = err
}

func (a *app) failure(what string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastErr == nil {
		return errors.New(what)
	}
	return fmt.Errorf("%s: %w", what, a.lastErr)
}

// newClient opens the configured backend and a client on it. immediate skips storage.
func (a *app) newClient(ctx context.Context, immediate bool, distinctID string) (*tracker.Client, func(), error) {
	if a.cfg.Token == "" {
		return nil, nil, errors.New("token is required (use --token, token: in tracker.yaml or TRACKER_TOKEN)")
	}

	opts := []tracker.Option{
		tracker.WithHTTPOptions(a.cfg.httpOptions()...),
		tracker.WithLogger(a.logger),
		tracker.WithErrorSink(tracker.ErrorSinkFunc(a.report)),
		tracker.WithAutoInsertID(true),
	}
	if distinctID != "" {
		opts = append(opts, tracker.WithDistinctID(func(context.Context) string { return distinctID }))
	}

	var store *backend
	if !immediate {
		var err error
		store, err = openBackend(ctx, a.cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Backend, err)
		}
		opts = append(opts,
			tracker.WithBatchMode(queueInterval),
			tracker.WithStorage(store),
			tracker.WithStorageKey(a.cfg.StorageKey),
		)
	}

	client, err := tracker.NewClient(a.cfg.Token, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	release := func() {
		if err := client.Close(ctx); err != nil {
			a.logger.Warn("close client", "err", err)
		}
		if store != nil {
			if err := store.Close(); err != nil {
				a.logger.Warn("close storage", "err", err)
			}
		}
	}

	return client, release, nil
}

// bindFlags maps config keys to flags so a flag set on the command line wins over file and env.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// parseProps turns key=value pairs into properties. Values that are valid JSON keep their type.
func parseProps(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q, want key=value", pair)
		}
		if gjson.Valid(value) {
			props[key] = gjson.Parse(value).Value()
		} else {
			props[key] = value
		}
	}

	return props, nil
}
