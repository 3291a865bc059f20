package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/rehabdir/kv"
	"github.com/jonwraymond/rehabdir/observe"
)

// Store is a size-bounded TTL cache with optional persistence.
//
// Contract:
// - Concurrency: safe for concurrent use. Mutations of the entry set are
// atomic; port I/O happens outside the lock.
// - Errors: persistence failures never surface; they are logged and the
// operation continues memory-only.
// - Consistency: once memory holds an entry, the port is never read for it.
type Store struct {
	mu      sync.Mutex
	entries map[string]*record
	config  Config
	gen     uint64 // bumped by Invalidate and Delete

	port   kv.Store
	logger observe.Logger
	now    func() time.Time

	hits, misses, evictions, portErrors atomic.Int64
}

// record is the in-memory side of an entry. data is nil for the persisted
// tier, where memory only tracks creation time for eviction.
type record struct {
	data      json.RawMessage
	timestamp time.Time
	ttl       time.Duration
}

// persistedEntry is the wire form written to the port.
type persistedEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Stats is a snapshot of store counters.
type Stats struct {
	Entries    int
	Hits       int64
	Misses     int64
	Evictions  int64
	PortErrors int64
}

// Option configures a Store.
type Option func(*Store)

// WithPort sets the persistence port used by the persisted and hybrid tiers.
// Without a port those tiers behave like the memory tier.
func WithPort(port kv.Store) Option {
	return func(s *Store) {
		s.port = port
	}
}

// WithLogger sets the logger used for persistence failures and evictions.
func WithLogger(logger observe.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a store. Zero fields of config take their defaults.
func NewStore(config Config, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*record),
		config:  DefaultConfig().Merge(config),
		logger:  observe.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfig merges the non-zero fields of update into the configuration.
// Lowering MaxSize evicts the oldest entries immediately.
func (s *Store) SetConfig(ctx context.Context, update Config) {
	s.mu.Lock()
	s.config = s.config.Merge(update)
	var evicted []string
	for len(s.entries) > s.config.MaxSize {
		evicted = append(evicted, s.evictOldestLocked())
	}
	tier := s.config.Tier
	s.mu.Unlock()

	s.purgePort(ctx, tier, evicted)
}

// Set stores data under key with the given TTL (non-positive means the
// default). When the key is new and the store is full, the oldest entry is
// evicted first.
func (s *Store) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := s.set(ctx, key, data, ttl, nil)
	return err
}

// Generation returns a counter that changes whenever Invalidate or Delete
// runs. Read it before fetching a value and pass it to SetIfGeneration.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// SetIfGeneration stores data like Set, unless Invalidate or Delete ran
// after gen was read. It reports whether the entry was stored.
func (s *Store) SetIfGeneration(ctx context.Context, key string, data []byte, ttl time.Duration, gen uint64) (bool, error) {
	return s.set(ctx, key, data, ttl, &gen)
}

func (s *Store) set(ctx context.Context, key string, data []byte, ttl time.Duration, gen *uint64) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	payload := make(json.RawMessage, len(data))
	copy(payload, data)

	s.mu.Lock()
	if gen != nil && *gen != s.gen {
		s.mu.Unlock()
		return false, nil
	}
	rec := &record{timestamp: s.now(), ttl: s.config.EffectiveTTL(ttl)}
	evicted := s.insertLocked(key, rec)
	tier := s.config.Tier
	if tier.usesMemory() || s.port == nil {
		rec.data = payload
	}
	s.mu.Unlock()

	if tier.usesPort() && s.port != nil {
		ok := s.bestEffort(ctx, "set", key, func(ctx context.Context) error {
			raw, err := json.Marshal(persistedEntry{
				Data:      payload,
				Timestamp: rec.timestamp.UnixMilli(),
				TTL:       rec.ttl.Milliseconds(),
			})
			if err != nil {
				return err
			}
			return s.port.Set(ctx, PersistPrefix+key, string(raw))
		})
		if !ok && !tier.usesMemory() {
			// Keep the value reachable from memory for this entry.
			s.mu.Lock()
			if s.entries[key] == rec {
				rec.data = payload
			}
			s.mu.Unlock()
		}
		if ok && gen != nil {
			// An invalidation that ran during the port write must not leave
			// this entry behind in the port.
			s.mu.Lock()
			orphaned := s.gen != *gen && s.entries[key] == nil
			s.mu.Unlock()
			if orphaned {
				evicted = append(evicted, key)
			}
		}
	}
	s.purgePort(ctx, tier, evicted)
	return true, nil
}

// Get returns the payload stored under key if present and not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	e, ok := s.Entry(ctx, key)
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Entry returns the unexpired entry stored under key, with its metadata.
//
// Memory is consulted first. On a memory miss the persisted and hybrid
// tiers read the port; a hit is written back into memory unless every
// entry already held is newer and the store is full.
func (s *Store) Entry(ctx context.Context, key string) (Entry[json.RawMessage], bool) {
	s.mu.Lock()
	var mem *Entry[json.RawMessage]
	if rec := s.entries[key]; rec != nil && rec.data != nil {
		e := rec.entry()
		mem = &e
	}
	tier := s.config.Tier
	now := s.now()
	gen := s.gen
	s.mu.Unlock()

	if mem != nil {
		e := *mem
		if e.IsExpired(now) {
			s.misses.Add(1)
			return Entry[json.RawMessage]{}, false
		}
		s.hits.Add(1)
		return e, true
	}

	if !tier.usesPort() || s.port == nil {
		s.misses.Add(1)
		return Entry[json.RawMessage]{}, false
	}

	e, ok := s.load(ctx, key)
	if !ok || e.IsExpired(now) {
		s.misses.Add(1)
		return Entry[json.RawMessage]{}, false
	}

	var evicted []string
	s.mu.Lock()
	switch cur, exists := s.entries[key]; {
	case exists && cur.data != nil:
		// A Set raced the port read; memory is fresher.
		e = cur.entry()
	case s.gen != gen:
		// Invalidated while the port was read: serve it but do not keep it.
	case (!exists || cur.timestamp.Before(e.Timestamp)) && s.admitsLocked(key, e.Timestamp):
		rec := &record{timestamp: e.Timestamp, ttl: e.TTL}
		if s.config.Tier.usesMemory() {
			rec.data = e.Data
		}
		evicted = s.insertLocked(key, rec)
	}
	tier = s.config.Tier
	s.mu.Unlock()

	s.purgePort(ctx, tier, evicted)
	s.hits.Add(1)
	return e, true
}

// Delete removes the entry stored under key.
func (s *Store) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.gen++
	tier := s.config.Tier
	s.mu.Unlock()

	s.purgePort(ctx, tier, []string{key})
}

// Invalidate removes every entry whose key contains pattern as a substring,
// or every entry when pattern is empty. It returns how many distinct
// entries were removed, counting those only the port still held.
func (s *Store) Invalidate(ctx context.Context, pattern string) int {
	s.mu.Lock()
	removed := make(map[string]struct{})
	for key := range s.entries {
		if pattern == "" || strings.Contains(key, pattern) {
			removed[key] = struct{}{}
			delete(s.entries, key)
		}
	}
	s.gen++
	tier := s.config.Tier
	s.mu.Unlock()

	if !tier.usesPort() || s.port == nil {
		return len(removed)
	}

	// Entries persisted by earlier sessions are only reachable through the port.
	if lister, ok := s.port.(kv.Lister); ok {
		s.bestEffort(ctx, "keys", PersistPrefix, func(ctx context.Context) error {
			keys, err := lister.Keys(ctx, PersistPrefix)
			if err != nil {
				return err
			}
			for _, pk := range keys {
				key := strings.TrimPrefix(pk, PersistPrefix)
				if pattern == "" || strings.Contains(key, pattern) {
					removed[key] = struct{}{}
				}
			}
			return nil
		})
	}
	keys := make([]string, 0, len(removed))
	for key := range removed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	s.purgePort(ctx, tier, keys)
	return len(keys)
}

// Len returns the number of entries, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the sorted keys of every entry.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return Stats{
		Entries:    s.Len(),
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Evictions:  s.evictions.Load(),
		PortErrors: s.portErrors.Load(),
	}
}

// insertLocked stores rec under key, evicting oldest entries while a new key
// would exceed MaxSize. It returns the evicted keys. Caller holds s.mu.
func (s *Store) insertLocked(key string, rec *record) []string {
	var evicted []string
	if _, exists := s.entries[key]; !exists {
		for len(s.entries) > 0 && len(s.entries) >= s.config.MaxSize {
			evicted = append(evicted, s.evictOldestLocked())
		}
	}
	s.entries[key] = rec
	return evicted
}

// admitsLocked reports whether an entry created at ts can join the store
// without displacing a newer entry. When the store is full, ts must be newer
// than the oldest entry held. Caller holds s.mu.
func (s *Store) admitsLocked(key string, ts time.Time) bool {
	if _, exists := s.entries[key]; exists || len(s.entries) < s.config.MaxSize {
		return true
	}
	for _, rec := range s.entries {
		if rec.timestamp.Before(ts) {
			return true
		}
	}
	return false
}

// evictOldestLocked removes the entry with the earliest timestamp. Ties on
// equal timestamps go to whichever key map iteration visits first, which is
// arbitrary. Caller holds s.mu and guarantees the map is non-empty.
func (s *Store) evictOldestLocked() string {
	var (
		oldestKey string
		oldest    time.Time
		first     = true
	)
	for k, rec := range s.entries {
		if first || rec.timestamp.Before(oldest) {
			oldestKey, oldest, first = k, rec.timestamp, false
		}
	}
	delete(s.entries, oldestKey)
	s.evictions.Add(1)
	return oldestKey
}

func (s *Store) load(ctx context.Context, key string) (Entry[json.RawMessage], bool) {
	var (
		e     Entry[json.RawMessage]
		found bool
	)
	s.bestEffort(ctx, "get", key, func(ctx context.Context) error {
		raw, ok, err := s.port.Get(ctx, PersistPrefix+key)
		if err != nil || !ok {
			return err
		}
		var p persistedEntry
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return err
		}
		e = Entry[json.RawMessage]{
			Data:      p.Data,
			Timestamp: time.UnixMilli(p.Timestamp),
			TTL:       time.Duration(p.TTL) * time.Millisecond,
		}
		found = true
		return nil
	})
	return e, found
}

func (s *Store) purgePort(ctx context.Context, tier Tier, keys []string) {
	if len(keys) == 0 || !tier.usesPort() || s.port == nil {
		return
	}
	portKeys := make([]string, len(keys))
	for i, k := range keys {
		portKeys[i] = PersistPrefix + k
	}
	s.bestEffort(ctx, "remove", strings.Join(keys, ","), func(ctx context.Context) error {
		return s.port.RemoveMany(ctx, portKeys)
	})
}

// bestEffort runs a port operation and reports whether it succeeded. This
// is the only place port errors are handled: they are counted, logged and
// dropped.
func (s *Store) bestEffort(ctx context.Context, op, key string, fn func(context.Context) error) bool {
	err := fn(ctx)
	if err == nil {
		return true
	}
	s.portErrors.Add(1)
	s.logger.Warn(ctx, "cache persistence failed",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
	return false
}

func (r *record) entry() Entry[json.RawMessage] {
	return Entry[json.RawMessage]{Data: r.data, Timestamp: r.timestamp, TTL: r.ttl}
}
