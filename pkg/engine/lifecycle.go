package engine

import (
	"github.com/getmockd/intercept/internal/storage"
	"github.com/getmockd/intercept/pkg/mock"
)

// Pending lists every registered expectation that still needs a match, in
// registration order.
func (e *Engine) Pending() []*mock.Expectation {
	var pending []*mock.Expectation
	for _, exp := range e.store.List() {
		if exp.IsPending() {
			pending = append(pending, exp)
		}
	}
	return pending
}

// PendingStrings renders Pending for assertion messages.
func (e *Engine) PendingStrings() []string {
	pending := e.Pending()
	out := make([]string, len(pending))
	for i, exp := range pending {
		out[i] = exp.String()
	}
	return out
}

// Active lists every registered expectation, including optional and
// persistent ones that are no longer pending.
func (e *Engine) Active() []*mock.Expectation {
	return e.store.List()
}

// IsDone reports whether no expectation is pending.
func (e *Engine) IsDone() bool {
	return len(e.Pending()) == 0
}

// ClearAll drops every expectation. Scopes created earlier stay usable and
// report no pending expectations.
func (e *Engine) ClearAll() {
	n := e.store.Count()
	e.store.Clear()
	e.log.Debug("registry cleared", "removed", n)
}

// Remove drops one expectation. It reports false when the expectation was
// not registered, for instance because it was already used up.
func (e *Engine) Remove(exp *mock.Expectation) bool {
	if exp == nil {
		return false
	}
	removed := storage.NewScopeView(e.store, exp.Scope).Remove(exp.ID)
	if removed {
		e.log.Debug("expectation removed", "id", exp.ID, "expectation", exp.String())
	}
	return removed
}

// SetPersistent toggles persistence of a registered expectation. Turning
// persistence off on an expectation with no uses left removes it.
func (e *Engine) SetPersistent(exp *mock.Expectation, persist bool) bool {
	if exp == nil {
		return false
	}
	found := false
	_ = e.store.Update(func(tx storage.Tx) error {
		if tx.Get(exp.ID) != exp {
			return nil
		}
		found = true
		if exp.SetPersistent(persist) {
			tx.Remove(exp.ID)
		}
		return nil
	})
	return found
}

// consume records one use of exp. The caller holds the registry lock through
// tx; an exhausted expectation leaves the registry in the same critical
// section.
func (e *Engine) consume(tx storage.Tx, exp *mock.Expectation) {
	if exp.Consume() {
		tx.Remove(exp.ID)
		e.log.Debug("expectation exhausted", "id", exp.ID, "expectation", exp.String())
		return
	}
	e.log.Debug("expectation consumed", "id", exp.ID, "remaining", exp.Remaining(), "persist", exp.IsPersistent())
}
