package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/velmie/tracker"
)

// Config is the CLI configuration read from tracker.yaml and TRACKER_* variables.
type Config struct {
	Token      string        `mapstructure:"token"`
	BaseURL    string        `mapstructure:"base_url"`
	Verbose    bool          `mapstructure:"verbose"`
	UseIP      bool          `mapstructure:"use_ip"`
	Proxy      string        `mapstructure:"proxy"`
	StorageKey string        `mapstructure:"storage_key"`
	LogLevel   string        `mapstructure:"log_level"`
	Storage    StorageConfig `mapstructure:"storage"`
}

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	// Backend is one of memory, pebble, sqlite, redis, mysql.
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	DSN     string        `mapstructure:"dsn"`
	Table   string        `mapstructure:"table"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tracker")
	}

	return "."
}

func newViper() *viper.Viper {
	v := viper.New()

	// Every key needs a default so env overrides reach Unmarshal.
	v.SetDefault("token", "")
	v.SetDefault("base_url", tracker.DefaultBaseURL)
	v.SetDefault("verbose", false)
	v.SetDefault("use_ip", false)
	v.SetDefault("proxy", "")
	v.SetDefault("storage_key", tracker.DefaultStorageKey)
	v.SetDefault("log_level", "info")
	v.SetDefault("storage.backend", "pebble")
	v.SetDefault("storage.path", filepath.Join(defaultConfigDir(), "queue"))
	v.SetDefault("storage.url", "redis://localhost:6379/0")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.table", "tracker_state")
	v.SetDefault("storage.ttl", time.Duration(0))

	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadConfig reads the config file (explicit path, or tracker.yaml in the working directory and
// the user config directory) and applies env overrides. A missing default file is not an error.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tracker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) httpOptions() []tracker.HTTPOption {
	opts := []tracker.HTTPOption{
		tracker.WithBaseURL(c.BaseURL),
		tracker.WithVerbose(c.Verbose),
		tracker.WithUseIP(c.UseIP),
	}
	if c.Proxy != "" {
		opts = append(opts, tracker.WithProxy(c.Proxy))
	}

	return opts
}
