// Package auth manages the bearer credential of a directory client.
//
// A Session keeps the credential in a kv.Store under a single key, so it
// survives restarts when the store is persistent. Calls that need
// authentication ask the Session for a token; a missing credential yields
// ErrNotAuthenticated and a JWT whose exp lies in the past yields
// ErrTokenExpired, both before any network traffic happens.
//
// Tokens are not verified here: the signing key belongs to the backend.
// Claims are read only to learn expiry and who is signed in.
package auth
