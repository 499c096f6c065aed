package mock

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mockerr"
)

func TestStringMatcher(t *testing.T) {
	tests := []struct {
		name    string
		matcher StringMatcher
		in      string
		want    bool
	}{
		{"exact hit", Exact("/a"), "/a", true},
		{"exact miss", Exact("/a"), "/a/", false},
		{"regex hit", Regex(`^/users/\d+$`), "/users/42", true},
		{"regex miss", Regex(`^/users/\d+$`), "/users/x", false},
		{"compiled regex", RegexOf(regexp.MustCompile(`b`)), "abc", true},
		{"glob single segment", Glob("/api/*/items"), "/api/v1/items", true},
		{"glob does not cross slash", Glob("/api/*"), "/api/v1/items", false},
		{"glob double star", Glob("/api/**"), "/api/v1/items", true},
		{"func", Func(func(s string) bool { return strings.HasSuffix(s, ".json") }), "/x.json", true},
		{"expr", Expr(`value startsWith "/v1/" && len(value) < 10`), "/v1/a", true},
		{"expr miss", Expr(`value startsWith "/v1/"`), "/v2/a", false},
		{"zero never matches", StringMatcher{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.matcher.Err())
			assert.Equal(t, tt.want, tt.matcher.Match(tt.in))
		})
	}
}

func TestStringMatcher_Errors(t *testing.T) {
	for _, m := range []StringMatcher{
		Regex("("),
		Glob("[a"),
		Func(nil),
		Expr("value +"),
		MatcherFrom(42),
	} {
		assert.ErrorIs(t, m.Err(), mockerr.ErrConfiguration)
		assert.False(t, m.Match("anything"))
	}
}

func TestStringMatcher_String(t *testing.T) {
	assert.Equal(t, `"/a"`, Exact("/a").String())
	assert.Equal(t, "/^a/", Regex("^a").String())
	assert.Equal(t, "glob(/a/*)", Glob("/a/*").String())
	assert.Equal(t, "<unset>", StringMatcher{}.String())
	assert.True(t, StringMatcher{}.IsZero())
	assert.False(t, Exact("").IsZero())
}

func TestMatcherFrom(t *testing.T) {
	assert.Equal(t, KindExact, MatcherFrom("x").Kind())
	assert.Equal(t, KindRegex, MatcherFrom(regexp.MustCompile("x")).Kind())
	assert.Equal(t, KindFunc, MatcherFrom(func(string) bool { return true }).Kind())
	assert.Equal(t, KindGlob, MatcherFrom(Glob("*")).Kind())
}

func TestQueryFrom(t *testing.T) {
	q, err := queryFrom(true)
	require.NoError(t, err)
	assert.Equal(t, QueryAny, q.Kind)

	_, err = queryFrom(false)
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)

	q, err = queryFrom(map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1"}, q.Values)

	q, err = queryFrom("?a[b]=1&c=2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "1"}, "c": "2"}, q.Values)

	q, err = queryFrom(map[string]any{"n": 5, "flag": true, "empty": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": "5", "flag": "true", "empty": ""}, q.Values)
}

func TestBodyMatcherConstructors(t *testing.T) {
	b, err := BodyJSONPaths(map[string]any{"$.user.name": "ann"})
	require.NoError(t, err)
	assert.Equal(t, BodyJSONPath, b.Kind)
	require.Len(t, b.Conditions, 1)

	_, err = BodyJSONPaths(map[string]any{"$.a[": 1})
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)

	b, err = BodyMatchesSchema(`{"type":"object","required":["id"]}`)
	require.NoError(t, err)
	assert.NotNil(t, b.Schema)

	_, err = BodyMatchesSchema(`{"type":`)
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)

	b, err = BodyExpression(`body.id > 3`)
	require.NoError(t, err)
	assert.NotNil(t, b.Program)

	_, err = BodyExpression(`body.id >`)
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)
}

func TestNormalizeValue(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	re := regexp.MustCompile("x")

	got, err := NormalizeValue(map[string]any{
		"p":   payload{Name: "n", Count: 2},
		"n":   int64(7),
		"re":  re,
		"arr": []any{1, "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"p":   map[string]any{"name": "n", "count": float64(2)},
		"n":   float64(7),
		"re":  re,
		"arr": []any{float64(1), "1"},
	}, got)
}
