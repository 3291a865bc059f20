package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APICheckerConfig configures the backend reachability check.
type APICheckerConfig struct {
	// URL is requested with GET. Required.
	URL string

	// Client performs the request.
	// Default: http.DefaultClient
	Client *http.Client

	// SlowThreshold marks a reachable backend as Degraded when the
	// response takes longer.
	// Default: 2 seconds
	SlowThreshold time.Duration
}

// APIChecker checks that the backend API answers.
//
// Any response below 500 counts as reachable: an unauthenticated 401 still
// proves the backend is up.
type APIChecker struct {
	config APICheckerConfig
}

// NewAPIChecker creates a backend health checker.
func NewAPIChecker(config APICheckerConfig) *APIChecker {
	if config.Client == nil {
		config.Client = http.DefaultClient
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = 2 * time.Second
	}
	return &APIChecker{config: config}
}

// Name returns the name of this checker.
func (a *APIChecker) Name() string {
	return "api"
}

// Check performs the request.
func (a *APIChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.URL, nil)
	if err != nil {
		return Unhealthy("invalid api url", err)
	}

	start := time.Now()
	resp, err := a.config.Client.Do(req)
	if err != nil {
		return Unhealthy("api unreachable", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	elapsed := time.Since(start)

	details := map[string]any{
		"url":         a.config.URL,
		"status_code": resp.StatusCode,
		"latency_ms":  elapsed.Milliseconds(),
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return Unhealthy(fmt.Sprintf("api returned %d", resp.StatusCode), ErrCheckFailed).WithDetails(details)
	}
	if elapsed > a.config.SlowThreshold {
		return Degraded(fmt.Sprintf("api slow: %s", elapsed.Round(time.Millisecond))).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("api returned %d", resp.StatusCode)).WithDetails(details)
}
