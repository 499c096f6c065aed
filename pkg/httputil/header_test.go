package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mockerr"
)

func TestNormalizeHeaders(t *testing.T) {
	t.Parallel()

	t.Run("lowercases names", func(t *testing.T) {
		t.Parallel()
		h, err := NormalizeHeaders(map[string][]string{"Content-Type": {"text/plain"}, "X-ID": {"1"}})
		require.NoError(t, err)
		assert.Equal(t, Header{"content-type": {"text/plain"}, "x-id": {"1"}}, h)
	})

	t.Run("folds repeated values by policy", func(t *testing.T) {
		t.Parallel()
		h, err := NormalizeHeaders(map[string][]string{
			"Accept":     {"a", "b"},
			"Cookie":     {"x=1", "y=2"},
			"Host":       {"a.test", "b.test"},
			"Set-Cookie": {"s=1", "t=2"},
		})
		require.NoError(t, err)
		assert.Equal(t, Header{
			"accept":     {"a, b"},
			"cookie":     {"x=1; y=2"},
			"host":       {"a.test"},
			"set-cookie": {"s=1", "t=2"},
		}, h)
	})

	t.Run("case collision is a conflict", func(t *testing.T) {
		t.Parallel()
		_, err := NormalizeHeaders(map[string][]string{"X-Token": {"a"}, "x-token": {"b"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, mockerr.ErrConflict)
	})
}

func TestFromRawHeaderList_Folding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []string
		want Header
	}{
		{
			name: "singleton keeps first",
			raw:  []string{"Host", "a.test", "host", "b.test"},
			want: Header{"host": {"a.test"}},
		},
		{
			name: "set-cookie accumulates",
			raw:  []string{"Set-Cookie", "a=1", "Set-Cookie", "b=2"},
			want: Header{"set-cookie": {"a=1", "b=2"}},
		},
		{
			name: "cookie joins with semicolon",
			raw:  []string{"Cookie", "a=1", "cookie", "b=2"},
			want: Header{"cookie": {"a=1; b=2"}},
		},
		{
			name: "other fields join with comma",
			raw:  []string{"Accept", "text/html", "Accept", "application/json"},
			want: Header{"accept": {"text/html, application/json"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromRawHeaderList(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromRawHeaderList_OddLength(t *testing.T) {
	t.Parallel()
	_, err := FromRawHeaderList([]string{"a"})
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)
}

func TestRawHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	h := Header{"x-b": {"2"}, "x-a": {"1"}, "set-cookie": {"s=1", "t=2"}}
	raw := ToRawHeaderList(h)
	assert.Equal(t, []string{"set-cookie", "s=1", "set-cookie", "t=2", "x-a", "1", "x-b", "2"}, raw)

	back, err := FromRawHeaderList(raw)
	require.NoError(t, err)
	assert.Equal(t, h, back)
}

func TestHeader_Accessors(t *testing.T) {
	t.Parallel()

	h := Header{}
	h.Set("X-Trace", "abc")
	assert.True(t, h.Has("x-trace"))
	assert.Equal(t, "abc", h.Get("X-TRACE"))

	c := h.Clone()
	c.Del("x-trace")
	assert.True(t, h.Has("x-trace"))
	assert.False(t, c.Has("x-trace"))
	assert.Equal(t, "", c.Get("x-trace"))
}

func TestValidHeaderName(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidHeaderName("x-request-id"))
	assert.False(t, ValidHeaderName("bad header"))
	assert.False(t, ValidHeaderName(""))
	assert.True(t, ValidHeaderValue("ok"))
	assert.False(t, ValidHeaderValue("bad\nvalue"))
}
