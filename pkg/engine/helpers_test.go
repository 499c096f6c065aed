package engine

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(append([]Option{WithLogger(logging.ForTest(t, logging.LevelDebug))}, opts...)...)
}

func newReq(t *testing.T, method, rawURL string, headers map[string][]string, body string) *mock.Request {
	t.Helper()
	req, err := mock.NewRequest(method, rawURL, headers, body)
	require.NoError(t, err)
	return req
}

func mustExp(t *testing.T) func(*mock.Expectation, error) *mock.Expectation {
	return func(exp *mock.Expectation, err error) *mock.Expectation {
		t.Helper()
		require.NoError(t, err)
		return exp
	}
}

// do matches and plays back req, returning the response.
func do(t *testing.T, e *Engine, req *mock.Request) (*Response, error) {
	t.Helper()
	m, err := e.FindAndConsume(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return e.Playback(context.Background(), m)
}

func readBody(t *testing.T, resp *Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
