package requestlog

// Logger is the minimal interface for logging request entries.
type Logger interface {
	Log(entry *Entry)
}

// Store defines the interface for request history storage.
// Store embeds Logger, so any Store implementation can be used where Logger is expected.
type Store interface {
	Logger

	// Get retrieves a log entry by ID.
	Get(id string) *Entry

	// List returns log entries newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all log entries.
	Clear()

	// Count returns the number of log entries.
	Count() int
}

// Filter defines criteria for filtering request logs.
type Filter struct {
	// Event filters by event type.
	Event string

	Method string

	Origin string

	// Path filters by path prefix, or by doublestar glob when it contains
	// glob metacharacters.
	Path string

	// ExpectationID filters by matched expectation ID.
	ExpectationID string

	// StatusCode filters by response status code.
	StatusCode int

	// HasError filters by error presence.
	HasError *bool

	// Limit is the maximum number of entries to return.
	Limit int

	// Offset is the number of entries to skip.
	Offset int
}

// Subscriber is a channel that receives new log entries.
type Subscriber chan *Entry

// SubscribableStore extends Store with subscription support.
type SubscribableStore interface {
	Store

	// Subscribe registers a subscriber to receive new log entries.
	// Returns a channel that will receive entries and an unsubscribe function.
	Subscribe() (Subscriber, func())
}

// ExtendedStore provides per-expectation queries.
type ExtendedStore interface {
	Store

	// ClearByExpectationID removes all log entries for the given expectation.
	ClearByExpectationID(id string)

	// CountByExpectationID returns the number of entries for the given expectation.
	CountByExpectationID(id string) int
}
