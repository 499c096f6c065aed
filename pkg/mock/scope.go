package mock

import (
	"strings"
	"time"
)

// Registrar receives finished expectations and answers lifecycle questions
// about a scope. The engine implements it.
type Registrar interface {
	Register(exp *Expectation) error
	ScopePending(s *Scope) []*Expectation
	ScopeActive(s *Scope) []*Expectation
	ScopeClear(s *Scope) int
}

// Scope is an origin plus configuration shared by every expectation built
// from it. Scope settings are fixed at creation.
type Scope struct {
	// Origin is the normalized scheme://host:port.
	Origin string

	RequiredHeaders  []HeaderMatcher
	ForbiddenHeaders []string
	// Conditionally gates every expectation of the scope. It is evaluated per
	// request.
	Conditionally func() bool
	// OriginFilter accepts request origins other than Origin.
	OriginFilter func(origin string) bool
	PathFilter   func(path string) string
	BodyFilter   func(body string) string

	PersistAll     bool
	DefaultHeaders map[string]any
	// ReplyDate, when non-zero, is sent as the Date header of every reply.
	ReplyDate time.Time
	// ContentLength adds a computed content-length header to static replies.
	ContentLength bool
	// AllowUnmocked lets requests to this origin that match nothing reach the
	// network.
	AllowUnmocked bool

	registrar Registrar
	err       error
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithRequiredHeader requires a header on every request of the scope.
func WithRequiredHeader(name string, value any) ScopeOption {
	return func(s *Scope) {
		m := NewHeaderMatcher(name, value)
		if err := m.Value.Err(); err != nil && s.err == nil {
			s.err = err
		}
		s.RequiredHeaders = append(s.RequiredHeaders, m)
	}
}

// WithForbiddenHeaders rejects requests carrying any of names.
func WithForbiddenHeaders(names ...string) ScopeOption {
	return func(s *Scope) {
		for _, n := range names {
			s.ForbiddenHeaders = append(s.ForbiddenHeaders, strings.ToLower(n))
		}
	}
}

// WithConditionally gates the scope on fn.
func WithConditionally(fn func() bool) ScopeOption {
	return func(s *Scope) { s.Conditionally = fn }
}

// WithOriginFilter lets the scope answer requests for any origin fn accepts.
func WithOriginFilter(fn func(origin string) bool) ScopeOption {
	return func(s *Scope) { s.OriginFilter = fn }
}

// WithPathFilter rewrites request paths before they are matched.
func WithPathFilter(fn func(path string) string) ScopeOption {
	return func(s *Scope) { s.PathFilter = fn }
}

// WithBodyFilter rewrites request bodies before they are matched.
func WithBodyFilter(fn func(body string) string) ScopeOption {
	return func(s *Scope) { s.BodyFilter = fn }
}

// WithPersistAll makes every expectation of the scope persistent.
func WithPersistAll() ScopeOption {
	return func(s *Scope) { s.PersistAll = true }
}

// WithDefaultReplyHeaders sets headers merged under every reply.
func WithDefaultReplyHeaders(h map[string]any) ScopeOption {
	return func(s *Scope) {
		norm, err := NormalizeReplyHeaders(h)
		if err == nil {
			err = ValidateHeaderValues(norm)
		}
		if err != nil && s.err == nil {
			s.err = err
		}
		s.DefaultHeaders = norm
	}
}

// WithReplyDate sends t as the Date header of every reply.
func WithReplyDate(t time.Time) ScopeOption {
	return func(s *Scope) { s.ReplyDate = t }
}

// WithContentLength adds content-length to static replies.
func WithContentLength() ScopeOption {
	return func(s *Scope) { s.ContentLength = true }
}

// WithAllowUnmocked lets unmatched requests to the origin pass through.
func WithAllowUnmocked() ScopeOption {
	return func(s *Scope) { s.AllowUnmocked = true }
}

// NewScope builds a scope for origin. Engines call it; tests may use it with
// their own Registrar.
func NewScope(origin string, r Registrar, opts ...ScopeOption) *Scope {
	s := &Scope{registrar: r}
	norm, err := NormalizeOrigin(origin)
	if err != nil {
		s.err = err
		s.Origin = origin
	} else {
		s.Origin = norm
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Err returns the first error raised while building the scope.
func (s *Scope) Err() error {
	return s.err
}

// Intercept starts an expectation for method and path. path may be a string,
// a *regexp.Regexp, a func(string) bool or a StringMatcher. An optional body
// argument is converted as by Interceptor.Body.
func (s *Scope) Intercept(method string, path any, body ...any) *Interceptor {
	return newInterceptor(s, method, path, body)
}

// Get starts a GET expectation.
func (s *Scope) Get(path any, body ...any) *Interceptor {
	return s.Intercept("GET", path, body...)
}

// Post starts a POST expectation.
func (s *Scope) Post(path any, body ...any) *Interceptor {
	return s.Intercept("POST", path, body...)
}

// Put starts a PUT expectation.
func (s *Scope) Put(path any, body ...any) *Interceptor {
	return s.Intercept("PUT", path, body...)
}

// Patch starts a PATCH expectation.
func (s *Scope) Patch(path any, body ...any) *Interceptor {
	return s.Intercept("PATCH", path, body...)
}

// Delete starts a DELETE expectation.
func (s *Scope) Delete(path any, body ...any) *Interceptor {
	return s.Intercept("DELETE", path, body...)
}

// Head starts a HEAD expectation.
func (s *Scope) Head(path any) *Interceptor {
	return s.Intercept("HEAD", path)
}

// Options starts an OPTIONS expectation.
func (s *Scope) Options(path any) *Interceptor {
	return s.Intercept("OPTIONS", path)
}

// Pending lists expectations of this scope that still need to be matched.
func (s *Scope) Pending() []*Expectation {
	if s.registrar == nil {
		return nil
	}
	return s.registrar.ScopePending(s)
}

// Active lists expectations of this scope still registered.
func (s *Scope) Active() []*Expectation {
	if s.registrar == nil {
		return nil
	}
	return s.registrar.ScopeActive(s)
}

// Clear removes every registered expectation of this scope, leaving other
// scopes untouched, and returns how many were removed.
func (s *Scope) Clear() int {
	if s.registrar == nil {
		return 0
	}
	return s.registrar.ScopeClear(s)
}

// IsDone reports whether every non-optional expectation of the scope has
// been used up, or matched at least once when persistent.
func (s *Scope) IsDone() bool {
	return len(s.Pending()) == 0
}
