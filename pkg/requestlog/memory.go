package requestlog

import (
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// DefaultMaxEntries is the capacity used when NewMemoryStore gets a
// non-positive size.
const DefaultMaxEntries = 1000

// subscriberBuffer is the channel capacity handed to subscribers. Entries are
// dropped for subscribers that fall further behind.
const subscriberBuffer = 100

// MemoryStore implements SubscribableStore and ExtendedStore with an
// in-memory FIFO buffer.
type MemoryStore struct {
	entries     []*Entry
	maxEntries  int
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:     make([]*Entry, 0, maxEntries),
		maxEntries:  maxEntries,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Log records a request log entry.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil {
		return
	}

	s.mu.Lock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	// FIFO eviction
	if len(s.entries) >= s.maxEntries {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.subMu.RLock()
	for sub := range s.subscribers {
		select {
		case sub <- entry:
		default:
			// slow subscriber
		}
	}
	s.subMu.RUnlock()
}

// Get retrieves a log entry by ID.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// List returns log entries newest first.
func (s *MemoryStore) List(filter *Filter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if filter != nil && !matchesFilter(entry, filter) {
			continue
		}
		result = append(result, entry)
	}

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(result) {
				return []*Entry{}
			}
			result = result[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result
}

func matchesFilter(entry *Entry, filter *Filter) bool {
	if filter.Event != "" && entry.Event != filter.Event {
		return false
	}
	if filter.Method != "" && entry.Method != filter.Method {
		return false
	}
	if filter.Origin != "" && entry.Origin != filter.Origin {
		return false
	}
	if filter.Path != "" && !matchesPath(entry.Path, filter.Path) {
		return false
	}
	if filter.ExpectationID != "" && entry.ExpectationID != filter.ExpectationID {
		return false
	}
	if filter.StatusCode != 0 && entry.ResponseStatus != filter.StatusCode {
		return false
	}
	if filter.HasError != nil && *filter.HasError != (entry.Error != "") {
		return false
	}
	return true
}

func matchesPath(path, pattern string) bool {
	if strings.ContainsAny(pattern, "*?[{") {
		ok, err := doublestar.Match(pattern, path)
		return err == nil && ok
	}
	return strings.HasPrefix(path, pattern)
}

// Clear removes all log entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]*Entry, 0, s.maxEntries)
}

// Count returns the number of log entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ClearByExpectationID removes all log entries for the given expectation.
func (s *MemoryStore) ClearByExpectationID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.ExpectationID != id {
			filtered = append(filtered, entry)
		}
	}
	s.entries = filtered
}

// CountByExpectationID returns the number of entries for the given expectation.
func (s *MemoryStore) CountByExpectationID(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, entry := range s.entries {
		if entry.ExpectationID == id {
			count++
		}
	}
	return count
}

// Subscribe registers a subscriber to receive new log entries.
// Returns a channel that will receive entries and an unsubscribe function.
func (s *MemoryStore) Subscribe() (Subscriber, func()) {
	ch := make(Subscriber, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

var (
	_ SubscribableStore = (*MemoryStore)(nil)
	_ ExtendedStore     = (*MemoryStore)(nil)
)
