package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/rehabdir/auth"
	"github.com/jonwraymond/rehabdir/cache"
	"github.com/jonwraymond/rehabdir/observe"
	"github.com/jonwraymond/rehabdir/request"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// ErrInvalidDriver indicates an unknown persistence driver.
var ErrInvalidDriver = errors.New("config: invalid store driver")

// Config is the full client configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// APIConfig configures the backend and the request coordinator.
type APIConfig struct {
	BaseURL      string            `mapstructure:"base_url"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	MaxRetries   int               `mapstructure:"max_retries"`
	RetryDelay   time.Duration     `mapstructure:"retry_delay"`
	CacheEnabled bool              `mapstructure:"cache_enabled"`
	Headers      map[string]string `mapstructure:"headers"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxSize    int           `mapstructure:"max_size"`
	Tier       string        `mapstructure:"tier"`
	StaleAfter time.Duration `mapstructure:"stale_after"` // 0 disables background refresh
}

// StoreConfig selects the persistence port.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory|bolt|sqlite
	Path   string `mapstructure:"path"`
}

// AuthConfig configures the bearer credential.
type AuthConfig struct {
	Token    string `mapstructure:"token"`     // optional preset credential
	TokenKey string `mapstructure:"token_key"` // port key holding the credential
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TelemetryConfig configures tracing and metrics exporters.
type TelemetryConfig struct {
	Tracing   string  `mapstructure:"tracing"` // otlp|stdout|none
	Metrics   string  `mapstructure:"metrics"` // otlp|prometheus|stdout|none
	SamplePct float64 `mapstructure:"sample_pct"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.RequestConfig().Validate(); err != nil {
		return err
	}
	if _, err := cache.ParseTier(c.Cache.Tier); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBolt, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: %s requires store.path", ErrInvalidDriver, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Store.Driver)
	}
	obs := c.ObserveConfig("rehabdir", "", io.Discard)
	return obs.Validate()
}

// RequestConfig returns the request coordinator configuration.
func (c *Config) RequestConfig() request.Config {
	return request.Config{
		BaseURL:      c.API.BaseURL,
		Timeout:      c.API.Timeout,
		MaxRetries:   c.API.MaxRetries,
		RetryDelay:   c.API.RetryDelay,
		CacheEnabled: c.API.CacheEnabled,
	}
}

// CacheConfig returns the cache store configuration. The tier is assumed
// valid; Validate checks it.
func (c *Config) CacheConfig() cache.Config {
	tier, _ := cache.ParseTier(c.Cache.Tier)
	return cache.Config{
		TTL:     c.Cache.TTL,
		MaxSize: c.Cache.MaxSize,
		Tier:    tier,
	}
}

// StalenessPolicy returns the stale-while-revalidate policy.
func (c *Config) StalenessPolicy() cache.StalenessPolicy {
	return cache.StalenessPolicy{Threshold: c.Cache.StaleAfter}
}

// TokenKey returns the port key holding the bearer credential.
func (c *Config) TokenKey() string {
	if c.Auth.TokenKey == "" {
		return auth.TokenKey
	}
	return c.Auth.TokenKey
}

// ObserveConfig returns the telemetry configuration. Logs go to w.
func (c *Config) ObserveConfig(service, version string, w io.Writer) observe.Config {
	return observe.Config{
		ServiceName: service,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing != "" && c.Telemetry.Tracing != "none",
			Exporter:  c.Telemetry.Tracing,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.Metrics != "" && c.Telemetry.Metrics != "none",
			Exporter: c.Telemetry.Metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			Writer:  w,
		},
	}
}

// DataDir returns the default directory for the persistent store and logs.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rehabdir"
	}
	return filepath.Join(home, ".rehabdir")
}
