// Package id mints identifiers for expectations and playback contexts.
//
// Expectations get ULIDs so that sorting by ID reproduces registration
// order. Playback contexts and request log entries get random UUIDs.
package id
