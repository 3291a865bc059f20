// Package directory is the typed client for the rehabilitation center
// directory API.
//
// A Client composes the response cache, the request coordinator and the
// credential session. Every resource exposes List, Get, Create, Update and
// Delete:
//
//   - Reads are served from the cache when possible. A miss goes to the
//     backend through the coordinator (deduplicated, retried) and the
//     result is cached. A hit older than the staleness threshold is
//     returned at once and refreshed in the background.
//   - Writes always go to the backend. On success they invalidate every
//     cached list of the resource, and Update and Delete also drop the
//     record's own key.
//   - Bookings, favorites and the current user require a stored bearer
//     credential. Without one the call fails with auth.ErrNotAuthenticated
//     before any request is made.
//
// Failures are returned as *Error, which wraps the underlying sentinel.
package directory
