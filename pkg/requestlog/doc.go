// Package requestlog records what happened to each intercepted request: which
// expectation answered it, what was replied, or why nothing matched.
//
// It is distinct from operational logging, which uses log/slog.
//
// # Core Types
//
// Entry is one captured request and its outcome. Event tells matched,
// replied, unmatched, passthrough and failed requests apart. Unmatched entries
// carry the near misses computed by the matcher.
//
// # Store Interface
//
// Store defines request history storage, supporting:
//   - Recording new entries
//   - Querying by ID or with filters
//   - Subscribing to new entries
//   - Clearing history
//
// # Usage
//
//	store := requestlog.NewMemoryStore(1000)
//	ch, unsubscribe := store.Subscribe()
//	defer unsubscribe()
//	store.Log(&requestlog.Entry{Event: requestlog.EventNoMatch, Method: "GET", Path: "/users"})
//	entry := <-ch
//
// This is a leaf package with no internal dependencies.
package requestlog
