// Package cli provides the interactive CRM command-line client.
//
// It wires configuration, the local session database, the API client and the
// entity stores into a REPL. One entity kind is active at a time ("use
// contacts"); list, paging, search, selection and bulk commands act on it.
// A background watcher pings the server and logs online/offline transitions.
//
// The REPL is started via App.Run, which blocks until the user exits.
package cli
