package storage

import (
	"github.com/getmockd/intercept/pkg/mock"
)

// Reader is the read side of the registry. Tx and Store both provide it.
type Reader interface {
	// Get retrieves an expectation by ID. Returns nil if not found.
	Get(id string) *mock.Expectation

	// Candidates returns the expectations registered for origin, in
	// registration order.
	Candidates(origin string) []*mock.Expectation

	// FilteredCandidates returns expectations of other origins whose scope
	// origin filter accepts origin, in registration order.
	FilteredCandidates(origin string) []*mock.Expectation

	// List returns every registered expectation in registration order.
	List() []*mock.Expectation

	// Count returns the number of registered expectations.
	Count() int
}

// Tx is the view handed to Update. Its methods must not be called after the
// function returns.
type Tx interface {
	Reader

	// Remove drops an expectation by ID. Returns true if it was registered.
	Remove(id string) bool
}

// Store defines the expectation registry.
type Store interface {
	Reader

	// Register appends an expectation. Registering the same ID twice is a
	// conflict.
	Register(exp *mock.Expectation) error

	// Remove drops an expectation by ID. Returns true if it was registered.
	Remove(id string) bool

	// Clear removes every expectation.
	Clear()

	// Update runs fn with the store write-locked.
	Update(fn func(tx Tx) error) error
}
