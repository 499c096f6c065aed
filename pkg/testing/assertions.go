package testing

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/ohler55/ojg/jp"
	"github.com/stretchr/testify/assert"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/requestlog"
)

// RequestLog is an intercepted request that matched an expectation.
type RequestLog struct {
	Method string
	// Origin is the normalized scheme://host:port.
	Origin      string
	Path        string
	QueryString string
	Headers     httputil.Header
	Body        string
	// ExpectationID identifies the expectation that answered.
	ExpectationID string
}

func requestLogFrom(e *requestlog.Entry) RequestLog {
	return RequestLog{
		Method:        e.Method,
		Origin:        e.Origin,
		Path:          e.Path,
		QueryString:   e.QueryString,
		Headers:       httputil.Header(e.Headers),
		Body:          e.Body,
		ExpectationID: e.ExpectationID,
	}
}

// AssertJSONBody asserts that the request body is JSON equal to expected.
// expected can be a string, []byte, or any value that encodes to JSON.
func (r *RequestLog) AssertJSONBody(t testing.TB, expected any) bool {
	t.Helper()

	var want string
	switch v := expected.(type) {
	case string:
		want = v
	case []byte:
		want = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Errorf("failed to marshal expected value: %v", err)
			return false
		}
		want = string(data)
	}
	return assert.JSONEq(t, want, r.Body, "request body of %s %s", r.Method, r.Path)
}

// AssertBody asserts that the request body equals expected.
func (r *RequestLog) AssertBody(t testing.TB, expected string) bool {
	t.Helper()
	return assert.Equal(t, expected, r.Body, "request body of %s %s", r.Method, r.Path)
}

// AssertBodyContains asserts that the request body contains substr.
func (r *RequestLog) AssertBodyContains(t testing.TB, substr string) bool {
	t.Helper()
	return assert.Contains(t, r.Body, substr, "request body of %s %s", r.Method, r.Path)
}

// AssertHeader asserts that the request carried the header with value
// expected. Names are case-insensitive.
func (r *RequestLog) AssertHeader(t testing.TB, name, expected string) bool {
	t.Helper()
	values := r.Headers.Values(name)
	if len(values) == 0 {
		t.Errorf("request does not have header %q", name)
		return false
	}
	return assert.Contains(t, values, expected, "header %q", name)
}

// AssertHeaderExists asserts that the request carried the header.
func (r *RequestLog) AssertHeaderExists(t testing.TB, name string) bool {
	t.Helper()
	if len(r.Headers.Values(name)) == 0 {
		t.Errorf("request does not have header %q", name)
		return false
	}
	return true
}

// AssertQueryParam asserts that the query has key with value expected.
func (r *RequestLog) AssertQueryParam(t testing.TB, key, expected string) bool {
	t.Helper()
	q, err := url.ParseQuery(r.QueryString)
	if err != nil {
		t.Errorf("invalid query string %q: %v", r.QueryString, err)
		return false
	}
	if !q.Has(key) {
		t.Errorf("request does not have query parameter %q", key)
		return false
	}
	return assert.Equal(t, expected, q.Get(key), "query parameter %q", key)
}

// JSONPath evaluates a JSONPath expression against the request body and
// returns every result. It returns nil when the body is not JSON or the
// expression is invalid.
func (r *RequestLog) JSONPath(path string) []any {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil
	}
	var data any
	if err := json.Unmarshal([]byte(r.Body), &data); err != nil {
		return nil
	}
	return x.Get(data)
}

// AssertJSONPath asserts that the first JSONPath result equals expected.
// Numbers compare as float64.
func (r *RequestLog) AssertJSONPath(t testing.TB, path string, expected any) bool {
	t.Helper()
	results := r.JSONPath(path)
	if len(results) == 0 {
		t.Errorf("JSONPath %s has no result in body %s", path, r.Body)
		return false
	}
	return assert.EqualValues(t, expected, results[0], "JSONPath %s", path)
}
