package httputil

import (
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/getmockd/intercept/pkg/mockerr"
)

// Header is a header mapping keyed by lowercase field name.
type Header map[string][]string

// singletonHeaders keep only their first value when a raw list repeats them.
var singletonHeaders = map[string]bool{
	"age":                 true,
	"authorization":       true,
	"content-length":      true,
	"content-type":        true,
	"etag":                true,
	"expires":             true,
	"from":                true,
	"host":                true,
	"if-modified-since":   true,
	"if-unmodified-since": true,
	"last-modified":       true,
	"location":            true,
	"max-forwards":        true,
	"proxy-authorization": true,
	"referer":             true,
	"retry-after":         true,
	"user-agent":          true,
}

// FoldPolicy describes how repeated occurrences of a header are combined.
type FoldPolicy int

const (
	// FoldJoin joins values with ", ".
	FoldJoin FoldPolicy = iota
	// FoldFirst keeps the first value.
	FoldFirst
	// FoldAccumulate keeps every value separately.
	FoldAccumulate
	// FoldCookie joins values with "; ".
	FoldCookie
)

// PolicyFor returns the fold policy for a lowercase header name.
func PolicyFor(name string) FoldPolicy {
	switch {
	case name == "set-cookie":
		return FoldAccumulate
	case name == "cookie":
		return FoldCookie
	case singletonHeaders[name]:
		return FoldFirst
	default:
		return FoldJoin
	}
}

// ValidHeaderName reports whether name is a legal HTTP field name.
func ValidHeaderName(name string) bool {
	return httpguts.ValidHeaderFieldName(name)
}

// ValidHeaderValue reports whether value is a legal HTTP field value.
func ValidHeaderValue(value string) bool {
	return httpguts.ValidHeaderFieldValue(value)
}

// NormalizeHeaders lowercases every name in h and folds repeated values by
// the field's FoldPolicy. Two names that differ only by case produce a
// ConflictError.
func NormalizeHeaders(h map[string][]string) (Header, error) {
	out := make(Header, len(h))
	seen := make(map[string]string, len(h))
	for name, values := range h {
		lower := strings.ToLower(name)
		if prev, ok := seen[lower]; ok {
			return nil, mockerr.Conflict("headers", "%q and %q collide after lowercasing", prev, name)
		}
		seen[lower] = name
		for _, v := range values {
			out.add(lower, v)
		}
	}
	return out, nil
}

// FromRawHeaderList converts a flat [name, value, ...] list to a Header,
// folding repeated names by their FoldPolicy.
func FromRawHeaderList(raw []string) (Header, error) {
	if len(raw)%2 != 0 {
		return nil, mockerr.Configuration("headers", "raw header list has odd length %d", len(raw))
	}
	out := make(Header, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		out.add(strings.ToLower(raw[i]), raw[i+1])
	}
	return out, nil
}

func (h Header) add(name, value string) {
	existing, ok := h[name]
	if !ok {
		h[name] = []string{value}
		return
	}
	switch PolicyFor(name) {
	case FoldFirst:
	case FoldAccumulate:
		h[name] = append(existing, value)
	case FoldCookie:
		existing[0] = existing[0] + "; " + value
	default:
		existing[0] = existing[0] + ", " + value
	}
}

// ToRawHeaderList flattens h into [name, value, ...] ordered by name.
// Accumulated fields emit one pair per value.
func ToRawHeaderList(h Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	raw := make([]string, 0, len(h)*2)
	for _, name := range names {
		for _, v := range h[name] {
			raw = append(raw, name, v)
		}
	}
	return raw
}

// Get returns the first value for name, case-insensitively.
func (h Header) Get(name string) string {
	if v := h[strings.ToLower(name)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns every value for name, case-insensitively.
func (h Header) Values(name string) []string {
	return h[strings.ToLower(name)]
}

// Has reports whether name is present, case-insensitively.
func (h Header) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Set replaces the values for name.
func (h Header) Set(name string, values ...string) {
	h[strings.ToLower(name)] = values
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, strings.ToLower(name))
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
