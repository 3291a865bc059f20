// Package request issues HTTP calls against the directory backend.
//
// A Coordinator deduplicates concurrent identical requests, bounds every
// attempt with its own timeout, and retries failed attempts with
// exponential backoff. Every call resolves to a Result; nothing panics or
// returns a bare error across the Dispatch boundary.
//
// # Deduplication
//
// Requests are identified by their Signature: method, endpoint, sorted
// query, sorted headers and the serialized body. While a call with a given
// signature is in flight, later callers with the same signature wait for
// and share its Result. The registry entry is dropped the moment the call
// settles.
//
// Once started, a call runs to completion: it is detached from the
// initiating caller's cancellation, and a caller that stops caring simply
// ignores the Result.
//
// # Retries
//
// Network errors, per-attempt timeouts and non-2xx responses are all
// retried, up to Config.MaxRetries attempts in total, waiting
// RetryDelay*2^(attempt-1) between attempts. WithRetryIf installs a
// classifier for callers that want permanent failures to stop early.
package request
