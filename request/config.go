package request

import (
	"errors"
	"time"
)

// Config configures a Coordinator.
type Config struct {
	// BaseURL is prefixed to every endpoint.
	BaseURL string

	// Timeout bounds each attempt.
	// Default: 10s
	Timeout time.Duration

	// MaxRetries is the total number of attempts per call.
	// Default: 3
	MaxRetries int

	// RetryDelay is the wait after the first failed attempt; later waits
	// double.
	// Default: 1s
	RetryDelay time.Duration

	// CacheEnabled tells read paths built on the coordinator to consult
	// and populate the response cache. It is not merged by SetConfig; see
	// WithCacheEnabled and Coordinator.SetCacheEnabled.
	// Default: true
	CacheEnabled bool
}

// ErrMissingBaseURL is returned by Validate when BaseURL is empty.
var ErrMissingBaseURL = errors.New("request: base URL is required")

// DefaultConfig returns the default coordinator configuration.
// Timeout: 10s, MaxRetries: 3, RetryDelay: 1s, CacheEnabled: true
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		CacheEnabled: true,
	}
}

// Merge returns c with every non-zero field of update applied.
// CacheEnabled is not merged; use Coordinator.SetCacheEnabled.
func (c Config) Merge(update Config) Config {
	if update.BaseURL != "" {
		c.BaseURL = update.BaseURL
	}
	if update.Timeout > 0 {
		c.Timeout = update.Timeout
	}
	if update.MaxRetries > 0 {
		c.MaxRetries = update.MaxRetries
	}
	if update.RetryDelay > 0 {
		c.RetryDelay = update.RetryDelay
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}
