package cache

import "time"

// IsStale reports whether more than threshold has passed since lastUpdated.
func IsStale(lastUpdated time.Time, threshold time.Duration, now time.Time) bool {
	return now.Sub(lastUpdated) > threshold
}

// StalenessPolicy decides when a still-usable entry deserves a background
// refresh. Threshold is independent of the entry TTL: an entry can be stale
// (worth refreshing) long before it is expired (unusable).
type StalenessPolicy struct {
	// Threshold is the age after which an entry is stale.
	// Zero disables background refresh.
	Threshold time.Duration
}

// Enabled reports whether the policy ever marks entries stale.
func (p StalenessPolicy) Enabled() bool {
	return p.Threshold > 0
}

// Stale reports whether an entry created at lastUpdated is stale at now.
func (p StalenessPolicy) Stale(lastUpdated, now time.Time) bool {
	return p.Enabled() && IsStale(lastUpdated, p.Threshold, now)
}
