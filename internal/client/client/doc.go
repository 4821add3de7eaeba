// Package client contains the CRM client's backend building blocks.
//
// # Overview
//
// The package provides:
//  1. HTTPClient, a JSON client for the CRM API: Register/Login/Refresh, Ping,
//     attachment URLs, and the transport under EntityService.
//  2. EntityService[T], the REST implementation of the entity service a
//     store.Store[T] reads from and writes to, one per table.
//  3. MemoryEntityService[T], an in-process implementation with the same
//     semantics, used when the CLI runs without a server.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every API failure is a *common.ServiceError carrying the server's message
// and HTTP status; errors.Is matches it against the common sentinels. A
// request that never got a response has StatusCode 0 and matches
// ErrUnavailable. While the circuit breaker is open calls fail fast with
// ErrCircuitOpen.
//
// # Retries
//
// GET requests are retried with exponential backoff on connection errors and
// on 429/500/502/503/504. Writes are sent once.
package client
