package mock

import (
	"net/url"
	"strings"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// QueryKind identifies how a QueryMatcher evaluates a request query.
type QueryKind string

const (
	QueryUnset QueryKind = ""
	QueryAny   QueryKind = "any"
	QueryExact QueryKind = "exact"
	QueryFunc  QueryKind = "func"
)

// QueryMatcher is the query stage of an expectation. An unset matcher ignores
// the query entirely.
type QueryMatcher struct {
	Kind QueryKind
	// Values is the normalized exact query: bracket keys expanded, leaves
	// formatted to strings except *regexp.Regexp.
	Values map[string]any
	Fn     func(query map[string]any) bool
}

// AnyQuery accepts any query, including none.
func AnyQuery() QueryMatcher {
	return QueryMatcher{Kind: QueryAny}
}

// QueryValues requires exactly the given top-level keys with matching values.
func QueryValues(q map[string]any) QueryMatcher {
	return QueryMatcher{Kind: QueryExact, Values: httputil.FormatQuery(q)}
}

// QueryPredicate passes the parsed query to fn.
func QueryPredicate(fn func(map[string]any) bool) QueryMatcher {
	return QueryMatcher{Kind: QueryFunc, Fn: fn}
}

// IsSet reports whether the matcher constrains the query at all.
func (q QueryMatcher) IsSet() bool {
	return q.Kind != QueryUnset
}

// queryFrom converts the loosely typed argument of Interceptor.Query.
func queryFrom(v any) (QueryMatcher, error) {
	switch t := v.(type) {
	case QueryMatcher:
		return t, nil
	case bool:
		if !t {
			return QueryMatcher{}, mockerr.Configuration("query", "false is not a query matcher")
		}
		return AnyQuery(), nil
	case map[string]any:
		return QueryValues(t), nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return QueryValues(m), nil
	case url.Values:
		return queryFromString(t.Encode())
	case string:
		return queryFromString(t)
	case func(map[string]any) bool:
		if t == nil {
			return QueryMatcher{}, mockerr.Configuration("query", "nil predicate")
		}
		return QueryPredicate(t), nil
	default:
		return QueryMatcher{}, mockerr.Configuration("query", "unsupported query matcher type %T", v)
	}
}

func queryFromString(raw string) (QueryMatcher, error) {
	parsed, err := httputil.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return QueryMatcher{}, mockerr.Configuration("query", "%v", err)
	}
	return QueryValues(parsed), nil
}
