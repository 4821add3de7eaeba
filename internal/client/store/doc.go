// Package store implements the client-side entity store: one generic,
// type-parameterized cache per entity kind sitting between the UI (here, the
// CLI) and an EntityService.
//
// # Overview
//
// A Store[T] owns five pieces of state:
//
//   - the entity cache: id -> last server-confirmed value;
//   - the optimistic overlay: id -> pending patches of in-flight mutations;
//   - the query cache: canonical query signature -> ordered ids + paging info,
//     valid for the configured TTL;
//   - the selection set used by bulk operations;
//   - the active search/filter/sort/page configuration and the current view.
//
// Reads (Get, Items, Filtered) always return the cache value with the overlay
// merged on top, overlay winning. Rolling back a mutation only deletes its
// overlay layer.
//
// # Concurrency
//
// All methods are safe for concurrent use. The store lock is never held while
// an EntityService call is in flight, so other operations proceed while a
// mutation or fetch is pending. Concurrent FetchList calls with the same
// signature share one service call. When two mutations of one id overlap,
// the one that resolves last determines the cached value.
//
// # Error Handling
//
// Each operation kind has its own error slot (see Err) and loading counter
// (see Loading). A slot is cleared when a new attempt of that kind starts.
// Local validation failures are returned as *ValidationError and never reach
// the service. Bulk calls report mixed per-id results through BulkOutcome
// rather than as an error.
//
// # Session
//
// BindSession couples the store to a Session: a login invalidates and
// reloads, a logout resets every structure so nothing of the previous user
// survives.
package store
