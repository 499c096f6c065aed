package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
)

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	return engine.New(append([]engine.Option{engine.WithLogger(logging.ForTest(t, logging.LevelDebug))}, opts...)...)
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Upstream", "yes")
		_, _ = w.Write([]byte("real:" + r.URL.Path + ":" + string(body)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTransport_ServesMatchedRequest(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("https://api.test").
		Post("/users", map[string]any{"name": "ann"}).
		MatchHeader("Authorization", "Bearer t").
		Reply(201, map[string]any{"id": 7}, map[string]any{"X-Request-Id": "abc"})
	require.NoError(t, err)

	client := New(e, WithNetConnect(DenyAll())).Client()
	req, err := http.NewRequest("POST", "https://api.test/users", strings.NewReader(`{"name":"ann"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer t")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "201 Created", resp.Status)
	assert.Equal(t, "abc", resp.Header.Get("X-Request-Id"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(body))
	assert.True(t, e.IsDone())
}

func TestTransport_FoldsRepeatedHeaders(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Get("/").
		MatchHeader("Accept", "a, b").
		Reply(200, "folded")
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "http://api.test/", nil)
	require.NoError(t, err)
	req.Header.Add("Accept", "a")
	req.Header.Add("Accept", "b")

	resp, err := New(e, WithNetConnect(DenyAll())).Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "folded", string(body))
}

func TestTransport_ContentLength(t *testing.T) {
	e := newEngine(t, engine.WithContentLength())
	_, err := e.Scope("http://api.test").Get("/").Reply(200, "four")
	require.NoError(t, err)

	resp, err := New(e).Client().Get("http://api.test/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.EqualValues(t, 4, resp.ContentLength)
}

func TestTransport_NoMatchForMockedOrigin(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Get("/a").Reply(200, "")
	require.NoError(t, err)

	_, err = New(e).Client().Get("http://api.test/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, mockerr.ErrNoMatch)
}

func TestTransport_NetConnectBlocksUnknownHost(t *testing.T) {
	e := newEngine(t)
	_, err := New(e, WithNetConnect(DenyAll())).Client().Get("http://unknown.test/x")

	var netErr *NetConnectError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "unknown.test", netErr.Host)
	assert.Equal(t, "GET", netErr.Method)
}

func TestTransport_PassthroughForUnknownHost(t *testing.T) {
	srv := upstream(t)
	log := requestlog.NewMemoryStore(10)
	e := newEngine(t, engine.WithRequestLog(log))

	resp, err := New(e).Client().Post(srv.URL+"/echo", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "real:/echo:hello", string(body))
	assert.Len(t, log.List(&requestlog.Filter{Event: requestlog.EventPassthrough}), 1)
}

func TestTransport_AllowUnmockedScope(t *testing.T) {
	srv := upstream(t)
	e := newEngine(t)
	_, err := e.Scope(srv.URL, mock.WithAllowUnmocked()).Get("/mocked").Reply(200, "mocked")
	require.NoError(t, err)
	client := New(e).Client()

	resp, err := client.Get(srv.URL + "/other")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "real:/other:", string(body))

	resp, err = client.Get(srv.URL + "/mocked")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "mocked", string(body))
	assert.Empty(t, resp.Header.Get("X-Upstream"))
}

func TestTransport_NetConnectAllowList(t *testing.T) {
	srv := upstream(t)
	e := newEngine(t)
	policy := DenyAll()
	tr := New(e, WithNetConnect(policy))

	_, err := tr.Client().Get(srv.URL + "/")
	var netErr *NetConnectError
	require.ErrorAs(t, err, &netErr)

	require.NoError(t, tr.NetConnect().Enable("127.0.0.1"))
	resp, err := tr.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
}

func TestTransport_SimulatedError(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Get("/").ReplyWithError(errors.New("connection reset"))
	require.NoError(t, err)

	_, err = New(e).Client().Get("http://api.test/")
	require.Error(t, err)
	assert.ErrorIs(t, err, mockerr.ErrSimulated)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestTransport_IdleTimeout(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Get("/").SocketDelay(time.Second).Reply(200, "")
	require.NoError(t, err)

	_, err = New(e, WithIdleTimeout(100*time.Millisecond)).Client().Get("http://api.test/")
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestTransport_ContextCancel(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Get("/").Delay(time.Hour).Reply(200, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", "http://api.test/", nil)
	_, err = New(e).Client().Do(req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_BodyTooLarge(t *testing.T) {
	e := newEngine(t)
	_, err := New(e, WithMaxBodySize(4)).Client().Post("http://api.test/", "text/plain", strings.NewReader("too long"))
	assert.ErrorIs(t, err, mockerr.ErrConfiguration)
}

func TestInstall(t *testing.T) {
	original := http.DefaultTransport
	e := newEngine(t)
	_, err := e.Scope("http://installed.test").Get("/").Reply(200, "via default client")
	require.NoError(t, err)

	restore := Install(e, WithNetConnect(DenyAll()))
	assert.NotSame(t, original, http.DefaultTransport)

	resp, err := http.Get("http://installed.test/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "via default client", string(body))

	restore()
	restore()
	assert.Equal(t, original, http.DefaultTransport)
}

func TestTransport_DecodesBodyCharset(t *testing.T) {
	e := newEngine(t)
	_, err := e.Scope("http://api.test").Post("/notes", "café").Reply(204, "")
	require.NoError(t, err)

	latin1 := []byte{'c', 'a', 'f', 0xe9}
	req, err := http.NewRequest("POST", "http://api.test/notes", bytes.NewReader(latin1))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain; charset=ISO-8859-1")

	resp, err := New(e).Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 204, resp.StatusCode)
}

func TestDecodeCharset(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        string
	}{
		{"no content type", "", []byte("abc"), "abc"},
		{"utf-8", "text/plain; charset=utf-8", []byte("é"), "é"},
		{"latin1", "text/plain; charset=latin1", []byte{0xe9}, "é"},
		{"windows-1252", "text/plain; charset=windows-1252", []byte{0x80}, "€"},
		{"unknown charset", "text/plain; charset=klingon", []byte{0xe9}, "\xe9"},
		{"malformed", "text/plain; charset", []byte("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(decodeCharset(tt.contentType, tt.body)))
		})
	}
}
