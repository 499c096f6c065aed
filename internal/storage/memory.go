package storage

import (
	"slices"
	"sync"

	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*mock.Expectation
	byOrigin map[string][]*mock.Expectation
	order    []*mock.Expectation
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]*mock.Expectation),
		byOrigin: make(map[string][]*mock.Expectation),
	}
}

// Register appends exp after every expectation registered before it.
func (s *InMemoryStore) Register(exp *mock.Expectation) error {
	if exp == nil {
		return mockerr.Configuration("expectation", "nil expectation")
	}
	if exp.ID == "" {
		return mockerr.Configuration("id", "expectation has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[exp.ID]; exists {
		return mockerr.Conflict("id", "expectation %s already registered", exp.ID)
	}
	s.byID[exp.ID] = exp
	origin := exp.Origin()
	s.byOrigin[origin] = append(s.byOrigin[origin], exp)
	s.order = append(s.order, exp)
	return nil
}

// Get retrieves an expectation by ID. Returns nil if not found.
func (s *InMemoryStore) Get(id string) *mock.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Candidates returns the exact-origin pool.
func (s *InMemoryStore) Candidates(origin string) []*mock.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidates(origin)
}

// FilteredCandidates returns the origin-filter pool. Filters run under the
// read lock.
func (s *InMemoryStore) FilteredCandidates(origin string) []*mock.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filteredCandidates(origin)
}

// List returns all expectations in registration order.
func (s *InMemoryStore) List() []*mock.Expectation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Count returns the number of registered expectations.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Remove drops an expectation by ID.
func (s *InMemoryStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

// Clear removes all expectations.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*mock.Expectation)
	s.byOrigin = make(map[string][]*mock.Expectation)
	s.order = nil
}

// Update runs fn while holding the write lock.
func (s *InMemoryStore) Update(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memoryTx{s})
}

func (s *InMemoryStore) candidates(origin string) []*mock.Expectation {
	return slices.Clone(s.byOrigin[origin])
}

func (s *InMemoryStore) filteredCandidates(origin string) []*mock.Expectation {
	var result []*mock.Expectation
	for _, exp := range s.order {
		if exp.Scope == nil || exp.Scope.OriginFilter == nil || exp.Origin() == origin {
			continue
		}
		if exp.Scope.OriginFilter(origin) {
			result = append(result, exp)
		}
	}
	return result
}

func (s *InMemoryStore) remove(id string) bool {
	exp, exists := s.byID[id]
	if !exists {
		return false
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(e *mock.Expectation) bool { return e == exp })
	origin := exp.Origin()
	pool := slices.DeleteFunc(s.byOrigin[origin], func(e *mock.Expectation) bool { return e == exp })
	if len(pool) == 0 {
		delete(s.byOrigin, origin)
	} else {
		s.byOrigin[origin] = pool
	}
	return true
}

// memoryTx exposes the unlocked helpers while Update holds the lock.
type memoryTx struct {
	s *InMemoryStore
}

func (t memoryTx) Get(id string) *mock.Expectation { return t.s.byID[id] }

func (t memoryTx) Candidates(origin string) []*mock.Expectation { return t.s.candidates(origin) }

func (t memoryTx) FilteredCandidates(origin string) []*mock.Expectation {
	return t.s.filteredCandidates(origin)
}

func (t memoryTx) List() []*mock.Expectation { return slices.Clone(t.s.order) }

func (t memoryTx) Count() int { return len(t.s.order) }

func (t memoryTx) Remove(id string) bool { return t.s.remove(id) }

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
