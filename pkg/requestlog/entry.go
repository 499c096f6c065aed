package requestlog

import "time"

// Event constants for request logging.
const (
	EventMatched     = "matched"
	EventReplied     = "replied"
	EventNoMatch     = "no_match"
	EventPassthrough = "passthrough"
	EventError       = "error"
)

// Entry captures one intercepted request and what the engine did with it.
type Entry struct {
	// ID is a unique identifier for the log entry.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Event is one of the Event constants.
	Event string `json:"event"`

	Method string `json:"method"`

	// Origin is the normalized scheme://host:port of the request.
	Origin string `json:"origin"`

	// Path is the request path without the query string.
	Path string `json:"path"`

	// QueryString is the raw query string.
	QueryString string `json:"queryString,omitempty"`

	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body content (truncated if > 10KB).
	Body string `json:"body,omitempty"`

	// BodySize is the original body size in bytes.
	BodySize int `json:"bodySize"`

	// ExpectationID is the ID of the expectation that matched (empty if no match).
	ExpectationID string `json:"expectationId,omitempty"`

	// DeclaredOrigin is set when the match came through an origin filter.
	DeclaredOrigin string `json:"declaredOrigin,omitempty"`

	// ResponseStatus is the status code replied.
	ResponseStatus int `json:"responseStatus,omitempty"`

	// DurationMs is the time from match to reply headers in milliseconds.
	DurationMs int `json:"durationMs"`

	// Error contains the error message if the request failed.
	Error string `json:"error,omitempty"`

	// NearMisses lists the closest expectations of an unmatched request.
	NearMisses []NearMissInfo `json:"nearMisses,omitempty"`
}
