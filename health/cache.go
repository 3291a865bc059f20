package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/rehabdir/cache"
)

// CacheCheckerConfig configures the cache health checker.
type CacheCheckerConfig struct {
	// FillWarning is the fill ratio (entries / MaxSize) above which the
	// check reports it in its message. Value should be between 0 and 1.
	// Default: 0.9
	FillWarning float64
}

// CacheChecker reports the state of a response cache. It is Degraded when
// the persistence port failed since the previous check, because the cache
// then serves from memory only.
type CacheChecker struct {
	store  *cache.Store
	config CacheCheckerConfig

	mu             sync.Mutex
	lastPortErrors int64
}

// NewCacheChecker creates a cache health checker.
func NewCacheChecker(store *cache.Store, config CacheCheckerConfig) *CacheChecker {
	if config.FillWarning <= 0 || config.FillWarning > 1 {
		config.FillWarning = 0.9
	}
	return &CacheChecker{store: store, config: config}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check performs the cache health check.
func (c *CacheChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	stats := c.store.Stats()
	cfg := c.store.Config()

	c.mu.Lock()
	newErrors := stats.PortErrors - c.lastPortErrors
	c.lastPortErrors = stats.PortErrors
	c.mu.Unlock()

	fill := 0.0
	if cfg.MaxSize > 0 {
		fill = float64(stats.Entries) / float64(cfg.MaxSize)
	}
	hitRatio := 0.0
	if lookups := stats.Hits + stats.Misses; lookups > 0 {
		hitRatio = float64(stats.Hits) / float64(lookups)
	}

	details := map[string]any{
		"tier":         string(cfg.Tier),
		"entries":      stats.Entries,
		"max_size":     cfg.MaxSize,
		"fill_percent": fill * 100,
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"hit_ratio":    hitRatio,
		"evictions":    stats.Evictions,
		"port_errors":  stats.PortErrors,
	}

	if newErrors > 0 {
		return Degraded(
			fmt.Sprintf("cache persistence failing: %d errors since last check", newErrors),
		).WithDetails(details)
	}
	if fill >= c.config.FillWarning {
		return Healthy(fmt.Sprintf("cache nearly full: %.1f%%", fill*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("cache fill: %.1f%%", fill*100)).WithDetails(details)
}
