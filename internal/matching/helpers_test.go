package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mock"
)

type nopRegistrar struct{}

func (nopRegistrar) Register(*mock.Expectation) error               { return nil }
func (nopRegistrar) ScopePending(*mock.Scope) []*mock.Expectation { return nil }
func (nopRegistrar) ScopeActive(*mock.Scope) []*mock.Expectation  { return nil }
func (nopRegistrar) ScopeClear(*mock.Scope) int                    { return 0 }

func newScope(t *testing.T, opts ...mock.ScopeOption) *mock.Scope {
	t.Helper()
	s := mock.NewScope("http://api.test", nopRegistrar{}, opts...)
	require.NoError(t, s.Err())
	return s
}

func mustExp(t *testing.T) func(*mock.Expectation, error) *mock.Expectation {
	return func(exp *mock.Expectation, err error) *mock.Expectation {
		t.Helper()
		require.NoError(t, err)
		return exp
	}
}

func newReq(t *testing.T, method, url string, headers map[string][]string, body string) *mock.Request {
	t.Helper()
	req, err := mock.NewRequest(method, url, headers, body)
	require.NoError(t, err)
	return req
}
