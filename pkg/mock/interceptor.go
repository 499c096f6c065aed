package mock

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/getmockd/intercept/internal/id"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// Interceptor builds one Expectation. It is completed by one of the Reply
// methods, after which it must not be reused.
type Interceptor struct {
	scope    *Scope
	exp      *Expectation
	persist  bool
	querySet bool
	done     bool
	err      error
}

func newInterceptor(s *Scope, method string, path any, body []any) *Interceptor {
	i := &Interceptor{
		scope: s,
		exp: &Expectation{
			Scope:  s,
			Method: strings.ToUpper(method),
			Times:  1,
		},
	}
	if s.err != nil {
		i.setError(s.err)
	}
	i.setPath(path)
	if len(body) > 1 {
		i.setError(mockerr.Configuration("body", "at most one body matcher, got %d", len(body)))
	} else if len(body) == 1 && body[0] != nil {
		i.Body(body[0])
	}
	return i
}

// setError records the first error encountered during building.
// Subsequent errors are ignored (first error wins pattern).
func (i *Interceptor) setError(err error) {
	if i.err == nil {
		i.err = err
	}
}

// Err returns any error encountered during building.
func (i *Interceptor) Err() error {
	return i.err
}

func (i *Interceptor) setPath(path any) {
	s, ok := path.(string)
	if !ok {
		i.exp.Path = MatcherFrom(path)
		if err := i.exp.Path.Err(); err != nil {
			i.setError(err)
		}
		return
	}
	if s == "" {
		s = "/"
	}
	if !strings.HasPrefix(s, "/") {
		i.setError(mockerr.Configuration("path", "path %q must start with /", s))
	}
	p, q, hasQuery := strings.Cut(s, "?")
	i.exp.Path = Exact(p)
	if hasQuery {
		i.Query(q)
	}
}

// Query sets the query matcher. Accepted forms: true (any query), a
// map[string]any or map[string]string (exact set), url.Values, a raw query
// string, a func(map[string]any) bool, or a QueryMatcher. Setting the query
// twice, including via a "?" in the path, is a ConflictError.
func (i *Interceptor) Query(v any) *Interceptor {
	if i.querySet {
		i.setError(mockerr.Conflict("query", "query matcher already set for %s", i.exp.Path.Source()))
		return i
	}
	q, err := queryFrom(v)
	if err != nil {
		i.setError(err)
		return i
	}
	i.exp.Query = q
	i.querySet = true
	return i
}

// MatchHeader requires a request header. value is a string, *regexp.Regexp,
// func(string) bool or StringMatcher.
func (i *Interceptor) MatchHeader(name string, value any) *Interceptor {
	m := NewHeaderMatcher(name, value)
	if err := m.Value.Err(); err != nil {
		i.setError(err)
		return i
	}
	i.exp.Headers = append(i.exp.Headers, m)
	return i
}

// BadHeaders rejects requests carrying any of names.
func (i *Interceptor) BadHeaders(names ...string) *Interceptor {
	for _, n := range names {
		i.exp.ForbiddenHeaders = append(i.exp.ForbiddenHeaders, strings.ToLower(n))
	}
	return i
}

// BasicAuth requires an Authorization header with the given credentials.
func (i *Interceptor) BasicAuth(user, pass string) *Interceptor {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	return i.MatchHeader("authorization", "Basic "+token)
}

// Body sets the body matcher: a *regexp.Regexp, a func(any) bool, a
// BodyMatcher, or a literal value.
func (i *Interceptor) Body(v any) *Interceptor {
	if i.exp.Body.IsSet() {
		i.setError(mockerr.Conflict("body", "body matcher already set"))
		return i
	}
	b, err := bodyFrom(v)
	if err != nil {
		i.setError(err)
		return i
	}
	i.exp.Body = b
	return i
}

// Times sets how many requests the expectation answers. n must be positive.
func (i *Interceptor) Times(n int) *Interceptor {
	if n < 1 {
		i.setError(mockerr.Configuration("times", "times must be at least 1, got %d", n))
		return i
	}
	i.exp.Times = n
	return i
}

// Once is a convenience method for Times(1).
func (i *Interceptor) Once() *Interceptor { return i.Times(1) }

// Twice is a convenience method for Times(2).
func (i *Interceptor) Twice() *Interceptor { return i.Times(2) }

// Thrice is a convenience method for Times(3).
func (i *Interceptor) Thrice() *Interceptor { return i.Times(3) }

// Persist keeps the expectation registered after its uses run out.
func (i *Interceptor) Persist() *Interceptor {
	i.persist = true
	return i
}

// Optionally excludes the expectation from pending reporting.
func (i *Interceptor) Optionally() *Interceptor {
	i.exp.Optional = true
	return i
}

// Delay gates the response headers by d.
func (i *Interceptor) Delay(d time.Duration) *Interceptor {
	return i.DelayHeaders(d)
}

// DelayHeaders gates the response headers by d.
func (i *Interceptor) DelayHeaders(d time.Duration) *Interceptor {
	if d < 0 {
		i.setError(mockerr.Configuration("delay", "negative delay %s", d))
		return i
	}
	i.exp.HeadDelay = d
	return i
}

// DelayBody gates the first body byte by d after the headers are available.
func (i *Interceptor) DelayBody(d time.Duration) *Interceptor {
	if d < 0 {
		i.setError(mockerr.Configuration("delay", "negative delay %s", d))
		return i
	}
	i.exp.BodyDelay = d
	return i
}

// SocketDelay simulates an idle socket for d. A request whose idle timeout is
// at most d receives a timeout signal.
func (i *Interceptor) SocketDelay(d time.Duration) *Interceptor {
	if d < 0 {
		i.setError(mockerr.Configuration("delay", "negative delay %s", d))
		return i
	}
	i.exp.SocketDelay = d
	return i
}

// Reply completes the expectation with a static response. headers values may
// be string, []string, a number or a HeaderFunc. An io.Reader body is read
// once here so every use of the expectation replies with the same bytes.
func (i *Interceptor) Reply(status int, body any, headers ...map[string]any) (*Expectation, error) {
	h, err := mergeHeaderArgs(headers)
	if err != nil {
		i.setError(err)
	}
	if rd, ok := body.(io.Reader); ok {
		data, err := io.ReadAll(rd)
		if c, ok := rd.(io.Closer); ok {
			_ = c.Close()
		}
		if err != nil {
			i.setError(mockerr.Configuration("reply.body", "reading body: %v", err))
		}
		body = data
	}
	return i.finish(Reply{Kind: ReplyStatic, Status: status, Body: body, Headers: h})
}

// ReplyWith completes the expectation with a body callback. fn is a
// BodyFunc, AsyncBodyFunc or ContinuationBodyFunc (or the equivalent
// unnamed func types).
func (i *Interceptor) ReplyWith(status int, fn any, headers ...map[string]any) (*Expectation, error) {
	h, err := mergeHeaderArgs(headers)
	if err != nil {
		i.setError(err)
	}
	var r Responder
	switch f := fn.(type) {
	case BodyFunc:
		r = FromBodyFunc(status, h, f)
	case func(*Request) (any, error):
		r = FromBodyFunc(status, h, f)
	case AsyncBodyFunc:
		r = FromAsyncBody(status, h, f)
	case func(context.Context, *Request) <-chan Result:
		r = FromAsyncBody(status, h, f)
	case ContinuationBodyFunc:
		r = FromContinuationBody(status, h, f)
	case func(*Request, func(any, error)):
		r = FromContinuationBody(status, h, f)
	default:
		i.setError(mockerr.Configuration("reply", "unsupported body callback type %T", fn))
	}
	return i.finish(Reply{Kind: ReplyCallback, Status: status, Headers: h, Responder: r})
}

// ReplyFull completes the expectation with a callback that decides status,
// body and headers. fn is a FullFunc, AsyncFullFunc or ContinuationFullFunc.
func (i *Interceptor) ReplyFull(fn any) (*Expectation, error) {
	var r Responder
	switch f := fn.(type) {
	case FullFunc:
		r = FromFullFunc(f)
	case func(*Request) (*ReplyResult, error):
		r = FromFullFunc(f)
	case AsyncFullFunc:
		r = FromAsyncFull(f)
	case ContinuationFullFunc:
		r = FromContinuationFull(f)
	case func(*Request, func(*ReplyResult, error)):
		r = FromContinuationFull(f)
	default:
		i.setError(mockerr.Configuration("reply", "unsupported full reply callback type %T", fn))
	}
	return i.finish(Reply{Kind: ReplyFull, Responder: r})
}

// ReplyWithError completes the expectation with a simulated request error.
// v is an error, a string or any structured value.
func (i *Interceptor) ReplyWithError(v any) (*Expectation, error) {
	return i.finish(Reply{Kind: ReplyError, Error: v})
}

func (i *Interceptor) finish(r Reply) (*Expectation, error) {
	if i.done {
		return nil, mockerr.Configuration("reply", "interceptor already completed")
	}
	i.done = true
	if i.err != nil {
		return nil, i.err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	exp := i.exp
	exp.Reply = r
	exp.ID = id.ULID()
	exp.persist = i.persist || i.scope.PersistAll
	exp.Arm()

	if i.scope.registrar == nil {
		return nil, mockerr.Configuration("scope", "scope %s is not attached to an engine", i.scope.Origin)
	}
	if err := i.scope.registrar.Register(exp); err != nil {
		return nil, fmt.Errorf("registering %s: %w", exp, err)
	}
	return exp, nil
}

func mergeHeaderArgs(headers []map[string]any) (map[string]any, error) {
	merged := make(map[string]any)
	for _, h := range headers {
		for k, v := range h {
			merged[k] = v
		}
	}
	return NormalizeReplyHeaders(merged)
}
