package cache

import (
	"fmt"
	"time"
)

// Tier selects where entries live.
type Tier string

const (
	// TierMemory keeps entries in process memory only.
	TierMemory Tier = "memory"
	// TierPersisted keeps entry payloads only in the persistence port.
	TierPersisted Tier = "persisted"
	// TierHybrid keeps entries in memory and mirrors every write to the port.
	TierHybrid Tier = "hybrid"
)

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierMemory, TierPersisted, TierHybrid:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

func (t Tier) usesMemory() bool { return t == TierMemory || t == TierHybrid }
func (t Tier) usesPort() bool   { return t == TierPersisted || t == TierHybrid }

// Config configures a Store.
type Config struct {
	// TTL is used when Set is called without a TTL.
	// Default: 5 minutes
	TTL time.Duration

	// MaxSize bounds the number of entries.
	// Default: 100
	MaxSize int

	// Tier selects memory, persisted or hybrid storage.
	// Default: hybrid
	Tier Tier
}

// DefaultConfig returns the default cache configuration.
// TTL: 5 minutes, MaxSize: 100, Tier: hybrid
func DefaultConfig() Config {
	return Config{
		TTL:     5 * time.Minute,
		MaxSize: 100,
		Tier:    TierHybrid,
	}
}

// Merge returns c with every non-zero field of update applied.
func (c Config) Merge(update Config) Config {
	if update.TTL > 0 {
		c.TTL = update.TTL
	}
	if update.MaxSize > 0 {
		c.MaxSize = update.MaxSize
	}
	if update.Tier != "" {
		c.Tier = update.Tier
	}
	return c
}

// EffectiveTTL returns override, or the default TTL when override is not positive.
func (c Config) EffectiveTTL(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return c.TTL
}
