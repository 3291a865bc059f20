package kv

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// defaultBucket is the bbolt bucket holding every key.
	defaultBucket = "rehabdir"
	// openTimeout bounds how long Open waits for the file lock.
	openTimeout = time.Second
)

var errBucketNotFound = errors.New("kv: bucket not found")

// Bolt is a Store backed by a bbolt database file.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
	mu     sync.RWMutex
	closed bool
}

var (
	_ Store  = (*Bolt)(nil)
	_ Lister = (*Bolt)(nil)
)

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}
	b, err := NewBolt(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewBolt wraps an open database, creating the bucket if needed.
// The returned store owns db and closes it on Close.
func NewBolt(db *bbolt.DB) (*Bolt, error) {
	bucket := []byte(defaultBucket)
	err := db.Update(func(tx *bbolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucket)
		return createErr
	})
	if err != nil {
		return nil, err
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

// Get returns the value stored under key.
func (s *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, ErrClosed
	}

	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errBucketNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		// data is only valid inside the transaction
		value = string(data)
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set stores value under key.
func (s *Bolt) Set(_ context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errBucketNotFound
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Remove deletes key.
func (s *Bolt) Remove(ctx context.Context, key string) error {
	return s.RemoveMany(ctx, []string{key})
}

// RemoveMany deletes every key in keys within a single transaction.
func (s *Bolt) RemoveMany(_ context.Context, keys []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns the keys starting with prefix, in byte order.
func (s *Bolt) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the underlying database. Idempotent.
func (s *Bolt) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
