package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// --- Helper ---

func newScope(origin string, opts ...mock.ScopeOption) *mock.Scope {
	return mock.NewScope(origin, nil, opts...)
}

func newExp(id string, scope *mock.Scope, times int) *mock.Expectation {
	exp := &mock.Expectation{
		ID:     id,
		Scope:  scope,
		Method: "GET",
		Path:   mock.Exact("/" + id),
		Times:  times,
	}
	exp.Arm()
	return exp
}

func ids(exps []*mock.Expectation) string {
	parts := make([]string, len(exps))
	for i, e := range exps {
		parts[i] = e.ID
	}
	return strings.Join(parts, ",")
}

// --- InMemoryStore Tests ---

func TestNewInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	if store.Count() != 0 {
		t.Errorf("new store Count() = %d, want 0", store.Count())
	}
	if got := store.List(); len(got) != 0 {
		t.Errorf("new store List() = %v, want empty", got)
	}
}

func TestInMemory_RegisterAndGet(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	exp := newExp("a", s, 1)

	if err := store.Register(exp); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := store.Get("a"); got != exp {
		t.Errorf("Get(a) = %v, want %v", got, exp)
	}
	if got := store.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestInMemory_RegisterErrors(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")

	if err := store.Register(nil); !errors.Is(err, mockerr.ErrConfiguration) {
		t.Errorf("Register(nil) error = %v, want configuration error", err)
	}
	if err := store.Register(newExp("", s, 1)); !errors.Is(err, mockerr.ErrConfiguration) {
		t.Errorf("Register(no id) error = %v, want configuration error", err)
	}
	if err := store.Register(newExp("dup", s, 1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := store.Register(newExp("dup", s, 1)); !errors.Is(err, mockerr.ErrConflict) {
		t.Errorf("second Register(dup) error = %v, want conflict", err)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestInMemory_CandidatesKeepRegistrationOrder(t *testing.T) {
	store := NewInMemoryStore()
	api := newScope("http://api.test")
	other := newScope("https://other.test")

	for _, exp := range []*mock.Expectation{
		newExp("a1", api, 1),
		newExp("o1", other, 1),
		newExp("a2", api, 1),
		newExp("a3", api, 1),
	} {
		if err := store.Register(exp); err != nil {
			t.Fatalf("Register(%s) error = %v", exp.ID, err)
		}
	}

	if got := ids(store.Candidates("http://api.test:80")); got != "a1,a2,a3" {
		t.Errorf("Candidates(api) = %s, want a1,a2,a3", got)
	}
	if got := ids(store.Candidates("https://other.test:443")); got != "o1" {
		t.Errorf("Candidates(other) = %s, want o1", got)
	}
	if got := store.Candidates("http://nobody.test:80"); len(got) != 0 {
		t.Errorf("Candidates(nobody) = %v, want empty", got)
	}
	if got := ids(store.List()); got != "a1,o1,a2,a3" {
		t.Errorf("List() = %s, want a1,o1,a2,a3", got)
	}
}

func TestInMemory_CandidatesReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	_ = store.Register(newExp("a", s, 1))

	got := store.Candidates(s.Origin)
	got[0] = nil
	if store.Candidates(s.Origin)[0] == nil {
		t.Error("mutating Candidates() result changed the store")
	}
}

func TestInMemory_FilteredCandidates(t *testing.T) {
	store := NewInMemoryStore()
	filtered := newScope("http://api.test", mock.WithOriginFilter(func(origin string) bool {
		return strings.HasSuffix(origin, ".api.test:80")
	}))
	plain := newScope("http://eu.api.test")

	_ = store.Register(newExp("f1", filtered, 1))
	_ = store.Register(newExp("p1", plain, 1))
	_ = store.Register(newExp("f2", filtered, 1))

	if got := ids(store.FilteredCandidates("http://eu.api.test:80")); got != "f1,f2" {
		t.Errorf("FilteredCandidates(eu) = %s, want f1,f2", got)
	}
	if got := store.FilteredCandidates("http://elsewhere.test:80"); len(got) != 0 {
		t.Errorf("FilteredCandidates(elsewhere) = %s, want empty", ids(got))
	}
	// The declared origin is served by the exact pool only.
	if got := store.FilteredCandidates(filtered.Origin); len(got) != 0 {
		t.Errorf("FilteredCandidates(declared) = %s, want empty", ids(got))
	}
}

func TestInMemory_Remove(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	_ = store.Register(newExp("a", s, 1))
	_ = store.Register(newExp("b", s, 1))

	if !store.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if store.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if got := ids(store.Candidates(s.Origin)); got != "b" {
		t.Errorf("Candidates() after remove = %s, want b", got)
	}
	store.Remove("b")
	if got := store.Candidates(s.Origin); len(got) != 0 {
		t.Errorf("Candidates() after removing all = %s, want empty", ids(got))
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestInMemory_Clear(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	for i := range 5 {
		_ = store.Register(newExp(fmt.Sprintf("e%d", i), s, 1))
	}
	store.Clear()
	if store.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", store.Count())
	}
	if err := store.Register(newExp("e0", s, 1)); err != nil {
		t.Errorf("Register() after Clear() error = %v", err)
	}
}

func TestInMemory_UpdateConsumesAtomically(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	_ = store.Register(newExp("once", s, 1))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(func(tx Tx) error {
				for _, exp := range tx.Candidates(s.Origin) {
					if exp.Consume() {
						tx.Remove(exp.ID)
					}
					mu.Lock()
					winners++
					mu.Unlock()
					return nil
				}
				return nil
			})
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestInMemory_UpdateReturnsError(t *testing.T) {
	store := NewInMemoryStore()
	want := errors.New("boom")
	if err := store.Update(func(Tx) error { return want }); !errors.Is(err, want) {
		t.Errorf("Update() error = %v, want %v", err, want)
	}
}

func TestInMemory_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Register(newExp(fmt.Sprintf("c%d", n), s, 1))
		}(i)
	}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.List()
			store.Candidates(s.Origin)
			store.Count()
		}()
	}
	wg.Wait()

	if store.Count() != 100 {
		t.Errorf("Count() = %d, want 100", store.Count())
	}
}

// --- ScopeView Tests ---

func TestScopeView(t *testing.T) {
	store := NewInMemoryStore()
	a := newScope("http://api.test")
	b := newScope("http://api.test")

	_ = store.Register(newExp("a1", a, 1))
	_ = store.Register(newExp("b1", b, 1))
	_ = store.Register(newExp("a2", a, 1))

	view := NewScopeView(store, a)

	if got := ids(view.List()); got != "a1,a2" {
		t.Errorf("List() = %s, want a1,a2", got)
	}
	if view.Count() != 2 {
		t.Errorf("Count() = %d, want 2", view.Count())
	}
	if view.Get("b1") != nil {
		t.Error("Get(b1) returned an expectation of another scope")
	}
	if view.Remove("b1") {
		t.Error("Remove(b1) = true, want false")
	}
	if !view.Remove("a1") {
		t.Error("Remove(a1) = false, want true")
	}
	if n := view.Clear(); n != 1 {
		t.Errorf("Clear() = %d, want 1", n)
	}
	if view.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", view.Count())
	}
	if got := ids(store.List()); got != "b1" {
		t.Errorf("underlying List() = %s, want b1", got)
	}
}

func TestScopeView_Pending(t *testing.T) {
	store := NewInMemoryStore()
	s := newScope("http://api.test")

	plain := newExp("plain", s, 2)
	optional := newExp("optional", s, 1)
	optional.Optional = true
	persistent := newExp("persistent", s, 1)
	persistent.SetPersistent(true)

	for _, exp := range []*mock.Expectation{plain, optional, persistent} {
		_ = store.Register(exp)
	}
	view := NewScopeView(store, s)

	if got := ids(view.Pending()); got != "plain,persistent" {
		t.Errorf("Pending() = %s, want plain,persistent", got)
	}

	persistent.Consume()
	plain.Consume()
	if got := ids(view.Pending()); got != "plain" {
		t.Errorf("Pending() after one use = %s, want plain", got)
	}

	plain.Consume()
	if got := view.Pending(); len(got) != 0 {
		t.Errorf("Pending() after exhaustion = %s, want empty", ids(got))
	}
}
