// Package storage holds registered expectations in registration order.
//
// Key types:
//
//   - Store: interface for the expectation registry
//   - InMemoryStore: thread-safe in-memory implementation of Store
//   - ScopeView: live view of a store restricted to one scope
//
// Candidates are indexed by normalized origin. Expectations whose scope carries
// an origin filter are also reachable through FilteredCandidates, which the
// engine consults only after the exact-origin pool produced no match.
//
// Update runs a function with the store locked so a caller can decide a match
// and consume it in one critical section.
package storage
