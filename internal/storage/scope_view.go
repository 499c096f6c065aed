package storage

import (
	"github.com/getmockd/intercept/pkg/mock"
)

// ScopeView wraps a Store and filters it to the expectations built from one
// scope. It is a live view: reads always reflect the underlying store.
type ScopeView struct {
	underlying Store
	scope      *mock.Scope
}

// NewScopeView creates a view of store restricted to scope.
func NewScopeView(store Store, scope *mock.Scope) *ScopeView {
	return &ScopeView{underlying: store, scope: scope}
}

// Get retrieves an expectation by ID, only if it belongs to this scope.
func (v *ScopeView) Get(id string) *mock.Expectation {
	exp := v.underlying.Get(id)
	if exp == nil || exp.Scope != v.scope {
		return nil
	}
	return exp
}

// List returns the scope's registered expectations in registration order.
func (v *ScopeView) List() []*mock.Expectation {
	return filterScope(v.underlying.List(), v.scope)
}

// Pending returns the scope's expectations that still need a match.
func (v *ScopeView) Pending() []*mock.Expectation {
	var pending []*mock.Expectation
	for _, exp := range v.List() {
		if exp.IsPending() {
			pending = append(pending, exp)
		}
	}
	return pending
}

// Count returns the number of the scope's registered expectations.
func (v *ScopeView) Count() int {
	return len(v.List())
}

// Remove drops an expectation, only if it belongs to this scope.
func (v *ScopeView) Remove(id string) bool {
	if v.Get(id) == nil {
		return false
	}
	return v.underlying.Remove(id)
}

// Clear removes every expectation of the scope and returns how many were
// removed.
func (v *ScopeView) Clear() int {
	n := 0
	for _, exp := range v.List() {
		if v.underlying.Remove(exp.ID) {
			n++
		}
	}
	return n
}

func filterScope(exps []*mock.Expectation, scope *mock.Scope) []*mock.Expectation {
	filtered := make([]*mock.Expectation, 0)
	for _, exp := range exps {
		if exp != nil && exp.Scope == scope {
			filtered = append(filtered, exp)
		}
	}
	return filtered
}
