package testing

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/transport"
)

// Harness is an engine and transport scoped to a single test.
type Harness struct {
	t         testing.TB
	engine    *engine.Engine
	transport *transport.Transport
	requests  *requestlog.MemoryStore
}

type options struct {
	engineOpts []engine.Option
	netConnect *transport.NetConnect
	install    bool
	doneCheck  bool
	trace      bool
	logLevel   logging.Level
}

// Option configures a Harness.
type Option func(*options)

// WithEngineOptions passes extra options to the engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithNetConnect sets the policy for unmatched requests. The default denies
// all hosts.
func WithNetConnect(n *transport.NetConnect) Option {
	return func(o *options) {
		o.netConnect = n
	}
}

// WithInstall replaces http.DefaultTransport for the duration of the test.
// Tests using it must not run in parallel.
func WithInstall() Option {
	return func(o *options) {
		o.install = true
	}
}

// WithTrace writes every unmatched or passed-through request to the test
// log as it happens, with the closest expectations of unmatched ones.
func WithTrace() Option {
	return func(o *options) {
		o.trace = true
	}
}

// WithoutDoneCheck skips the pending check at cleanup.
func WithoutDoneCheck() Option {
	return func(o *options) {
		o.doneCheck = false
	}
}

// WithLogLevel sets the minimum level of engine logs written to the test
// log. Defaults to warn.
func WithLogLevel(level logging.Level) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

// New creates a Harness. At cleanup it fails t if expectations are still
// pending, unless t already failed.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()

	o := options{
		netConnect: transport.DenyAll(),
		doneCheck:  true,
		logLevel:   logging.LevelWarn,
	}
	for _, opt := range opts {
		opt(&o)
	}

	requests := requestlog.NewMemoryStore(requestlog.DefaultMaxEntries)
	engineOpts := append([]engine.Option{
		engine.WithLogger(logging.ForTest(t, o.logLevel)),
		engine.WithRequestLog(requests),
	}, o.engineOpts...)
	e := engine.New(engineOpts...)

	h := &Harness{
		t:         t,
		engine:    e,
		transport: transport.New(e, transport.WithNetConnect(o.netConnect)),
		requests:  requests,
	}

	if o.trace {
		h.trace(t)
	}
	if o.install {
		restore := transport.Install(e, transport.WithNetConnect(o.netConnect))
		t.Cleanup(restore)
	}
	if o.doneCheck {
		t.Cleanup(func() {
			if !t.Failed() {
				h.AssertDone(t)
			}
		})
	}
	return h
}

// Scope starts declaring expectations for origin.
func (h *Harness) Scope(origin string, opts ...mock.ScopeOption) *mock.Scope {
	return h.engine.Scope(origin, opts...)
}

// Load registers the definitions in path and fails the test on error.
func (h *Harness) Load(path string) []*mock.Expectation {
	h.t.Helper()
	defs, err := config.LoadDefinitions(path)
	if err != nil {
		h.t.Fatalf("loading definitions: %v", err)
	}
	exps, err := config.Define(h.engine, defs)
	if err != nil {
		h.t.Fatalf("defining expectations from %s: %v", path, err)
	}
	return exps
}

// Client returns an http.Client served by the harness.
func (h *Harness) Client() *http.Client {
	return h.transport.Client()
}

// Transport returns the harness transport.
func (h *Harness) Transport() *transport.Transport {
	return h.transport
}

// Engine returns the underlying engine.
func (h *Harness) Engine() *engine.Engine {
	return h.engine
}

// Reset removes every expectation and clears the request log.
func (h *Harness) Reset() {
	h.engine.ClearAll()
	h.requests.Clear()
}

// Forget removes exp from the engine and drops its request history.
func (h *Harness) Forget(exp *mock.Expectation) bool {
	removed := h.engine.Remove(exp)
	h.requests.ClearByExpectationID(exp.ID)
	return removed
}

func (h *Harness) trace(t testing.TB) {
	ch, unsubscribe := h.requests.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range ch {
			switch entry.Event {
			case requestlog.EventNoMatch:
				t.Logf("intercept: no match for %s %s%s", entry.Method, entry.Origin, entry.Path)
				for _, nm := range entry.NearMisses {
					t.Logf("intercept:   %3d%% %s: %s", nm.MatchPercentage, nm.Expectation, nm.Reason)
				}
			case requestlog.EventPassthrough:
				t.Logf("intercept: passed through %s %s%s", entry.Method, entry.Origin, entry.Path)
			}
		}
	}()
	t.Cleanup(func() {
		unsubscribe()
		<-done
	})
}

// Requests returns matched requests, newest first.
func (h *Harness) Requests() []RequestLog {
	entries := h.requests.List(&requestlog.Filter{Event: requestlog.EventMatched})
	out := make([]RequestLog, len(entries))
	for i, e := range entries {
		out[i] = requestLogFrom(e)
	}
	return out
}

// Unmatched returns requests no expectation answered, newest first.
func (h *Harness) Unmatched() []*requestlog.Entry {
	return h.requests.List(&requestlog.Filter{Event: requestlog.EventNoMatch})
}

// AssertDone fails t when expectations are pending.
func (h *Harness) AssertDone(t testing.TB) bool {
	t.Helper()
	pending := h.engine.PendingStrings()
	if len(pending) == 0 {
		return true
	}
	t.Errorf("%d expectation(s) not satisfied:\n  %s", len(pending), strings.Join(pending, "\n  "))
	return false
}

// AssertCalled asserts that method and rawURL were answered at least once.
func (h *Harness) AssertCalled(t testing.TB, method, rawURL string) bool {
	t.Helper()
	if h.countCalls(t, method, rawURL) == 0 {
		t.Errorf("expected %s %s to be called, but it was not called", method, rawURL)
		return false
	}
	return true
}

// AssertCalledTimes asserts that method and rawURL were answered exactly n
// times. A query in rawURL must match the request query exactly.
func (h *Harness) AssertCalledTimes(t testing.TB, method, rawURL string, n int) bool {
	t.Helper()
	if count := h.countCalls(t, method, rawURL); count != n {
		t.Errorf("expected %s %s to be called %d times, but was called %d times", method, rawURL, n, count)
		return false
	}
	return true
}

// AssertNotCalled asserts that method and rawURL were never answered.
func (h *Harness) AssertNotCalled(t testing.TB, method, rawURL string) bool {
	t.Helper()
	if count := h.countCalls(t, method, rawURL); count > 0 {
		t.Errorf("expected %s %s to not be called, but it was called %d times", method, rawURL, count)
		return false
	}
	return true
}

// AssertExpectationCalledTimes asserts the hit count of one expectation.
func (h *Harness) AssertExpectationCalledTimes(t testing.TB, exp *mock.Expectation, n int) bool {
	t.Helper()
	got := len(h.requests.List(&requestlog.Filter{Event: requestlog.EventMatched, ExpectationID: exp.ID}))
	if got != n {
		t.Errorf("expected %s to be called %d times, but was called %d times", exp, n, got)
		return false
	}
	return true
}

func (h *Harness) countCalls(t testing.TB, method, rawURL string) int {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Errorf("invalid URL %q: %v", rawURL, err)
		return 0
	}
	origin, err := mock.NormalizeOrigin(u.Scheme + "://" + u.Host)
	if err != nil {
		t.Errorf("invalid URL %q: %v", rawURL, err)
		return 0
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	count := 0
	for _, e := range h.requests.List(&requestlog.Filter{Event: requestlog.EventMatched, Method: strings.ToUpper(method), Origin: origin}) {
		if e.Path == path && (u.RawQuery == "" || e.QueryString == u.RawQuery) {
			count++
		}
	}
	return count
}
