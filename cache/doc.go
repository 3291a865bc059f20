// Package cache provides the client-side response cache.
//
// A Store keeps TTL-bounded entries in memory, in the key-value persistence
// port, or in both (hybrid), and never holds more than MaxSize entries:
// when full, the oldest entry by creation time is evicted. Reads do not
// refresh timestamps, so eviction is not LRU. Expired entries read as absent
// and are removed lazily.
//
// Bucket gives a typed view over a Store, Key derives order-independent keys
// from resource filters, and StalenessPolicy with ReadThrough implement
// stale-while-revalidate on top.
package cache
