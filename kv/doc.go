// Package kv defines the key-value persistence port used by the cache and
// the credential session, with memory, bbolt and SQLite adapters.
//
// The port is deliberately small: string keys, string values, and
// best-effort semantics. Callers treat every error as non-fatal.
package kv
