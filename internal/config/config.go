// Package config resolves the worker configuration from the environment.
package config

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the resolved startup configuration. Everything comes from
// environment variables; only DATABASE_URL has no default.
type Config struct {
	DatabaseURL          string
	Threads              int
	SearchModule         bool
	UpdateModule         bool
	UpdateWithConnection bool
	OnlyUpdateSpoofable  bool
	OnlyUpdateCracked    bool
	LogLevel             string
	MetricsListen        string
}

// Load reads and validates the environment. A missing DATABASE_URL or a
// malformed integer/boolean is an error; the caller treats it as fatal.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("THREADS", "150")
	v.SetDefault("SEARCH_MODULE", "true")
	v.SetDefault("UPDATE_MODULE", "true")
	v.SetDefault("UPDATE_WITH_CONNECTION", "false")
	v.SetDefault("ONLY_UPDATE_SPOOFABLE", "false")
	v.SetDefault("ONLY_UPDATE_CRACKED", "false")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_LISTEN", "")

	cfg := &Config{
		DatabaseURL:   v.GetString("DATABASE_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		MetricsListen: v.GetString("METRICS_LISTEN"),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}

	threads, err := strconv.Atoi(v.GetString("THREADS"))
	if err != nil {
		return nil, errors.Wrap(err, "THREADS must be a valid integer")
	}
	if threads <= 0 {
		return nil, errors.New("THREADS must be positive")
	}
	cfg.Threads = threads

	for _, item := range []struct {
		key  string
		dest *bool
	}{
		{"SEARCH_MODULE", &cfg.SearchModule},
		{"UPDATE_MODULE", &cfg.UpdateModule},
		{"UPDATE_WITH_CONNECTION", &cfg.UpdateWithConnection},
		{"ONLY_UPDATE_SPOOFABLE", &cfg.OnlyUpdateSpoofable},
		{"ONLY_UPDATE_CRACKED", &cfg.OnlyUpdateCracked},
	} {
		val, err := strconv.ParseBool(v.GetString(item.key))
		if err != nil {
			return nil, errors.Wrapf(err, "%s must be a boolean", item.key)
		}
		*item.dest = val
	}

	return cfg, nil
}
