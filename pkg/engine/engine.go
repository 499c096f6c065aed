package engine

import (
	"log/slog"
	"time"

	"github.com/getmockd/intercept/internal/storage"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
)

// DefaultNearMisses is how many near misses a NoMatchError reports.
const DefaultNearMisses = 3

// Engine owns one expectation registry. Engines are independent; tests
// usually create one each.
type Engine struct {
	store    storage.Store
	log      *slog.Logger
	requests requestlog.Store

	idleTimeout   time.Duration
	contentLength bool
	allowUnmocked bool
	nearMisses    int
	now           func() time.Time
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithStore replaces the in-memory registry.
func WithStore(store storage.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithRequestLog sets where request outcomes are recorded.
func WithRequestLog(store requestlog.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.requests = store
		}
	}
}

// WithIdleTimeout sets the idle threshold used for requests that do not carry
// their own.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.idleTimeout = d
	}
}

// WithContentLength makes every scope created by the engine add a computed
// content-length header to replies.
func WithContentLength() Option {
	return func(e *Engine) {
		e.contentLength = true
	}
}

// WithAllowUnmocked lets unmatched requests to any origin through to the
// network, subject to the transport's net-connect policy.
func WithAllowUnmocked() Option {
	return func(e *Engine) {
		e.allowUnmocked = true
	}
}

// WithNearMisses sets how many near misses are attached to a NoMatchError.
func WithNearMisses(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.nearMisses = n
		}
	}
}

// WithClock overrides time.Now for request log timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine with an empty registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:      storage.NewInMemoryStore(),
		log:        logging.Nop(),
		requests:   requestlog.NewMemoryStore(requestlog.DefaultMaxEntries),
		nearMisses: DefaultNearMisses,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scope starts declaring expectations for origin. Scope errors, such as an
// origin without a scheme, surface when the first expectation is completed.
func (e *Engine) Scope(origin string, opts ...mock.ScopeOption) *mock.Scope {
	if e.contentLength {
		opts = append([]mock.ScopeOption{mock.WithContentLength()}, opts...)
	}
	return mock.NewScope(origin, e, opts...)
}

// Register adds a completed expectation to the registry. Interceptors call it;
// callers building expectations by hand must Arm them first.
func (e *Engine) Register(exp *mock.Expectation) error {
	if exp == nil || exp.Scope == nil {
		return mockerr.Configuration("expectation", "expectation has no scope")
	}
	if err := exp.Scope.Err(); err != nil {
		return err
	}
	if err := e.store.Register(exp); err != nil {
		return err
	}
	e.log.Debug("expectation registered",
		"id", exp.ID,
		"expectation", exp.String(),
		"times", exp.Times,
		"persist", exp.IsPersistent(),
		"optional", exp.Optional,
	)
	return nil
}

// ScopePending implements mock.Registrar.
func (e *Engine) ScopePending(s *mock.Scope) []*mock.Expectation {
	return storage.NewScopeView(e.store, s).Pending()
}

// ScopeActive implements mock.Registrar.
func (e *Engine) ScopeActive(s *mock.Scope) []*mock.Expectation {
	return storage.NewScopeView(e.store, s).List()
}

// ScopeClear implements mock.Registrar.
func (e *Engine) ScopeClear(s *mock.Scope) int {
	n := storage.NewScopeView(e.store, s).Clear()
	e.log.Debug("scope cleared", "origin", s.Origin, "removed", n)
	return n
}

// Requests returns the request log.
func (e *Engine) Requests() requestlog.Store {
	return e.requests
}

// Logger returns the operational logger.
func (e *Engine) Logger() *slog.Logger {
	return e.log
}

// AllowsUnmocked reports whether an unmatched request to origin may reach the
// network: either the engine allows it globally, no expectation targets the
// origin, or a scope registered for it opted in.
func (e *Engine) AllowsUnmocked(origin string) bool {
	if e.allowUnmocked {
		return true
	}
	candidates := e.store.Candidates(origin)
	if len(candidates) == 0 && len(e.store.FilteredCandidates(origin)) == 0 {
		return true
	}
	for _, exp := range candidates {
		if exp.Scope != nil && exp.Scope.AllowUnmocked {
			return true
		}
	}
	return false
}

var _ mock.Registrar = (*Engine)(nil)
