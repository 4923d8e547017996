package mysql

import "github.com/velmie/tracker"

const defaultTable = "tracker_state"

// Config defines MySQL store behavior.
type Config struct {
	// Table is the key/value table. Use schema.table for non-default schema.
	Table string
	// Clock stamps updated_at on every save.
	Clock tracker.Clock
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Clock == nil {
		c.Clock = tracker.SystemClock{}
	}

	return c
}

// Option configures the MySQL store.
type Option func(*Config)

// WithTable sets the state table name.
func WithTable(name string) Option {
	return func(c *Config) {
		c.Table = name
	}
}

// WithClock sets the time source used by the store.
func WithClock(clock tracker.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}
