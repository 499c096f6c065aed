package mock

import (
	"fmt"
	"sync"
	"time"
)

// Expectation is one request-to-response rule. Matching fields are fixed once
// the expectation is registered; only the use counters change afterwards.
type Expectation struct {
	ID     string
	Scope  *Scope
	Method string
	Path   StringMatcher
	Query  QueryMatcher
	Body   BodyMatcher
	// Headers must all be present with matching values.
	Headers []HeaderMatcher
	// ForbiddenHeaders must all be absent.
	ForbiddenHeaders []string
	Reply            Reply
	Optional         bool

	HeadDelay   time.Duration
	BodyDelay   time.Duration
	SocketDelay time.Duration

	// Times is the number of uses declared at build time.
	Times int

	mu        sync.Mutex
	remaining int
	hits      int
	persist   bool
}

// Arm resets the use counters. The engine calls it on registration.
func (e *Expectation) Arm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remaining = e.Times
	e.hits = 0
}

// Consume records one match and reports whether the expectation is now
// exhausted. A persistent expectation is never exhausted.
func (e *Expectation) Consume() (exhausted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hits++
	if e.remaining > 0 {
		e.remaining--
	}
	return !e.persist && e.remaining <= 0
}

// Remaining returns the uses left. Persistent expectations may report zero
// and still match.
func (e *Expectation) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Hits returns how many requests this expectation has answered.
func (e *Expectation) Hits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}

// IsPersistent reports whether the expectation ignores its counter.
func (e *Expectation) IsPersistent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persist
}

// SetPersistent toggles persistence and reports whether the expectation is
// exhausted under the new setting.
func (e *Expectation) SetPersistent(persist bool) (exhausted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persist = persist
	return !persist && e.remaining <= 0
}

// IsPending reports whether the expectation still counts against its scope
// being done. Optional expectations are never pending; persistent ones are
// pending until they have matched once.
func (e *Expectation) IsPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Optional {
		return false
	}
	if e.persist {
		return e.hits == 0
	}
	return e.remaining > 0
}

// Origin returns the scope origin, or "" for a detached expectation.
func (e *Expectation) Origin() string {
	if e.Scope == nil {
		return ""
	}
	return e.Scope.Origin
}

// String renders "METHOD origin/path" for logs and pending lists.
func (e *Expectation) String() string {
	return fmt.Sprintf("%s %s%s", e.Method, e.Origin(), e.Path.Source())
}
