package matching

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getmockd/intercept/pkg/mock"
)

func TestMatch_Basic(t *testing.T) {
	must := mustExp(t)
	s := newScope(t)
	exp := must(s.Get("/users").Reply(200, "ok"))

	tests := []struct {
		name   string
		method string
		url    string
		want   bool
		field  string
	}{
		{"exact", "GET", "http://api.test/users", true, ""},
		{"explicit default port", "GET", "http://api.test:80/users", true, ""},
		{"method case", "get", "http://api.test/users", true, ""},
		{"query ignored when unset", "GET", "http://api.test/users?x=1", true, ""},
		{"wrong method", "POST", "http://api.test/users", false, "method"},
		{"wrong path", "GET", "http://api.test/users/1", false, "path"},
		{"wrong origin", "GET", "https://api.test/users", false, "origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Match(exp, newReq(t, tt.method, tt.url, nil, ""))
			assert.Equal(t, tt.want, v.Matched)
			if !tt.want {
				if assert.Len(t, v.Failed, 1) {
					assert.Equal(t, tt.field, v.Failed[0].Field)
				}
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestMatch_StageOrder(t *testing.T) {
	must := mustExp(t)
	s := newScope(t)
	exp := must(s.Post("/x", "payload").MatchHeader("x-key", "k").Reply(200, ""))

	// Everything is wrong: headers are reported first.
	v := Match(exp, newReq(t, "GET", "https://other.test/y", nil, "nope"))
	assert.False(t, v.Matched)
	assert.Equal(t, "headers", v.Failed[0].Field)

	// Headers fixed: origin comes before method and path.
	v = Match(exp, newReq(t, "GET", "https://other.test/y", map[string][]string{"X-Key": {"k"}}, "nope"))
	assert.Equal(t, "origin", v.Failed[0].Field)

	v = Match(exp, newReq(t, "POST", "http://api.test/x", map[string][]string{"X-Key": {"k"}}, "nope"))
	assert.Equal(t, "body", v.Failed[0].Field)
}

func TestMatch_Headers(t *testing.T) {
	must := mustExp(t)
	s := newScope(t,
		mock.WithRequiredHeader("X-Tenant", mock.Regex(`^t\d+$`)),
		mock.WithForbiddenHeaders("X-Debug"),
	)
	exp := must(s.Get("/").MatchHeader("authorization", func(v string) bool { return len(v) > 7 }).Reply(200, ""))

	ok := map[string][]string{"X-Tenant": {"t1"}, "Authorization": {"Bearer abc"}}
	assert.True(t, Match(exp, newReq(t, "GET", "http://api.test/", ok, "")).Matched)

	missingScopeHeader := map[string][]string{"Authorization": {"Bearer abc"}}
	v := Match(exp, newReq(t, "GET", "http://api.test/", missingScopeHeader, ""))
	assert.False(t, v.Matched)
	assert.Contains(t, v.Reason, "x-tenant")

	forbidden := map[string][]string{"X-Tenant": {"t1"}, "Authorization": {"Bearer abc"}, "X-Debug": {"1"}}
	v = Match(exp, newReq(t, "GET", "http://api.test/", forbidden, ""))
	assert.False(t, v.Matched)
	assert.Equal(t, "forbiddenHeaders", v.Failed[0].Field)
}

func TestMatch_Conditional(t *testing.T) {
	must := mustExp(t)
	enabled := false
	s := newScope(t, mock.WithConditionally(func() bool { return enabled }))
	exp := must(s.Get("/").Reply(200, ""))

	req := newReq(t, "GET", "http://api.test/", nil, "")
	assert.False(t, Match(exp, req).Matched)
	enabled = true
	assert.True(t, Match(exp, req).Matched)
}

func TestMatch_OriginFilter(t *testing.T) {
	must := mustExp(t)
	s := newScope(t, mock.WithOriginFilter(func(origin string) bool {
		return regexp.MustCompile(`^https://api[0-9]\.test:443$`).MatchString(origin)
	}))
	exp := must(s.Get("/").Reply(200, ""))

	v := Match(exp, newReq(t, "GET", "https://api2.test/", nil, ""))
	assert.True(t, v.Matched)
	assert.True(t, v.ViaFilter)

	v = Match(exp, newReq(t, "GET", "http://api.test/", nil, ""))
	assert.True(t, v.Matched)
	assert.False(t, v.ViaFilter)
}

func TestMatch_PathAndBodyFilters(t *testing.T) {
	must := mustExp(t)
	s := newScope(t,
		mock.WithPathFilter(func(p string) string { return regexp.MustCompile(`/\d+`).ReplaceAllString(p, "/ID") }),
		mock.WithBodyFilter(func(b string) string { return regexp.MustCompile(`"ts":\d+`).ReplaceAllString(b, `"ts":0`) }),
	)
	exp := must(s.Post("/users/ID", map[string]any{"ts": 0}).Reply(200, ""))

	req := newReq(t, "POST", "http://api.test/users/42", nil, `{"ts":1712}`)
	assert.True(t, Match(exp, req).Matched)
}

func TestMatch_PathKinds(t *testing.T) {
	must := mustExp(t)
	s := newScope(t)
	regex := must(s.Get(regexp.MustCompile(`^/items/\d+$`)).Reply(200, ""))
	glob := must(s.Get(mock.Glob("/files/**")).Reply(200, ""))
	expr := must(s.Get(mock.Expr(`value endsWith ".json"`)).Reply(200, ""))

	assert.True(t, Match(regex, newReq(t, "GET", "http://api.test/items/9?x=1", nil, "")).Matched)
	assert.False(t, Match(regex, newReq(t, "GET", "http://api.test/items/x", nil, "")).Matched)
	assert.True(t, Match(glob, newReq(t, "GET", "http://api.test/files/a/b/c", nil, "")).Matched)
	assert.True(t, Match(expr, newReq(t, "GET", "http://api.test/data.json", nil, "")).Matched)
}
