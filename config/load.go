package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonwraymond/rehabdir/secret"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REHABDIR"

// LoadOption adjusts how Load reads the configuration.
type LoadOption func(*viper.Viper)

// WithOverride sets key to value with the highest precedence, above the
// environment. Command-line flags use it.
func WithOverride(key string, value any) LoadOption {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads the configuration. When path is empty, rehabdir.yaml is
// searched for in DataDir() and the working directory, and a missing file
// is not an error.
func Load(ctx context.Context, path string, opts ...LoadOption) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rehabdir")
		v.SetConfigType("yaml")
		v.AddConfigPath(DataDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: failed to read config: %w", err)
		}
	}
	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if err := resolve(ctx, &cfg, secret.NewDefaultResolver()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", "1s")
	v.SetDefault("api.cache_enabled", true)

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_size", 100)
	v.SetDefault("cache.tier", "hybrid")
	v.SetDefault("cache.stale_after", "1m")

	v.SetDefault("store.driver", DriverBolt)
	v.SetDefault("store.path", filepath.Join(DataDir(), "cache.db"))

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("telemetry.tracing", "none")
	v.SetDefault("telemetry.metrics", "none")
	v.SetDefault("telemetry.sample_pct", 1.0)
}

// resolve expands environment and secret references in the string fields
// that may carry them.
func resolve(ctx context.Context, cfg *Config, r *secret.Resolver) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"api.base_url", &cfg.API.BaseURL},
		{"auth.token", &cfg.Auth.Token},
		{"store.path", &cfg.Store.Path},
		{"log.file", &cfg.Log.File},
	}
	for _, f := range fields {
		out, err := r.ResolveValue(ctx, *f.ptr)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.name, err)
		}
		*f.ptr = out
	}

	headers, err := r.ResolveMap(ctx, cfg.API.Headers)
	if err != nil {
		return fmt.Errorf("config: resolve api.headers: %w", err)
	}
	cfg.API.Headers = headers
	return nil
}
