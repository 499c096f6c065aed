package matching

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getmockd/intercept/pkg/mock"
)

func TestMatch_Query(t *testing.T) {
	must := mustExp(t)
	s := newScope(t)

	exact := must(s.Get("/q").Query(map[string]any{"a": 1, "b": 2}).Reply(200, ""))
	anyQ := must(s.Get("/q").Query(true).Reply(200, ""))
	pred := must(s.Get("/q").Query(func(q map[string]any) bool { return q["page"] == "3" }).Reply(200, ""))
	nested := must(s.Get("/q").Query(map[string]any{"filter": map[string]any{"status": "open"}}).Reply(200, ""))
	re := must(s.Get("/q").Query(map[string]any{"id": regexp.MustCompile(`^\d+$`)}).Reply(200, ""))
	list := must(s.Get("/q").Query(map[string]any{"tag": []any{"a", "b"}}).Reply(200, ""))

	tests := []struct {
		name string
		exp  *mock.Expectation
		url  string
		want bool
	}{
		{"order independent", exact, "http://api.test/q?b=2&a=1", true},
		{"subset rejected", exact, "http://api.test/q?a=1", false},
		{"superset rejected", exact, "http://api.test/q?a=1&b=2&c=3", false},
		{"value mismatch", exact, "http://api.test/q?a=1&b=3", false},
		{"any with query", anyQ, "http://api.test/q?z=1", true},
		{"any without query", anyQ, "http://api.test/q", true},
		{"any with malformed query", anyQ, "http://api.test/q?a=%zz", true},
		{"exact with malformed query", exact, "http://api.test/q?a=%zz", false},
		{"predicate", pred, "http://api.test/q?page=3", true},
		{"predicate miss", pred, "http://api.test/q?page=4", false},
		{"bracket nested", nested, "http://api.test/q?filter[status]=open", true},
		{"bracket nested miss", nested, "http://api.test/q?filter[status]=closed", false},
		{"regex leaf", re, "http://api.test/q?id=123", true},
		{"regex leaf miss", re, "http://api.test/q?id=abc", false},
		{"repeated keys", list, "http://api.test/q?tag=a&tag=b", true},
		{"repeated keys order", list, "http://api.test/q?tag=b&tag=a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Match(tt.exp, newReq(t, "GET", tt.url, nil, ""))
			assert.Equal(t, tt.want, v.Matched, v.Reason)
		})
	}
}
