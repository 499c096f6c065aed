package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/util"
)

// DefaultMaxBodySize caps how much of a request body is read for matching.
const DefaultMaxBodySize = 10 << 20

// Transport answers HTTP requests from an engine.
type Transport struct {
	engine      *engine.Engine
	base        http.RoundTripper
	netConnect  *NetConnect
	idleTimeout time.Duration
	maxBodySize int64
	log         *slog.Logger
}

// Option is a functional option for configuring a Transport.
type Option func(*Transport)

// WithBase sets the transport used for passthrough requests. Defaults to a
// clone of http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithNetConnect sets the policy for unmatched requests.
func WithNetConnect(n *NetConnect) Option {
	return func(t *Transport) {
		if n != nil {
			t.netConnect = n
		}
	}
}

// WithIdleTimeout sets the idle threshold of every request. When it elapses
// without the body being read, the request fails with a timeout error.
func WithIdleTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.idleTimeout = d
	}
}

// WithMaxBodySize caps how much of a request body is read.
func WithMaxBodySize(n int64) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxBodySize = n
		}
	}
}

// New creates a Transport for e.
func New(e *engine.Engine, opts ...Option) *Transport {
	t := &Transport{
		engine:      e,
		netConnect:  AllowAll(),
		maxBodySize: DefaultMaxBodySize,
		log:         e.Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.base == nil {
		if dt, ok := http.DefaultTransport.(*http.Transport); ok {
			t.base = dt.Clone()
		} else {
			t.base = http.DefaultTransport
		}
	}
	return t
}

// NetConnect returns the transport's policy so callers can change it.
func (t *Transport) NetConnect() *NetConnect {
	return t.netConnect
}

// Client returns an http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := t.readBody(req)
	if err != nil {
		return nil, err
	}
	mreq, err := toMockRequest(req, body)
	if err != nil {
		return nil, err
	}
	if t.idleTimeout > 0 {
		mreq.IdleTimeout = t.idleTimeout
	}

	ctx := req.Context()
	m, err := t.engine.FindAndConsume(ctx, mreq)
	if err != nil {
		if !errors.Is(err, mockerr.ErrNoMatch) {
			return nil, err
		}
		return t.unmatched(req, mreq, body, err)
	}

	resp, err := t.engine.Playback(ctx, m)
	if err != nil {
		return nil, err
	}
	if resp.TimedOut() {
		_ = resp.Body.Close()
		return nil, &timeoutError{url: req.URL.String()}
	}
	return toHTTPResponse(req, resp), nil
}

func (t *Transport) readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.Body, t.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(body)) > t.maxBodySize {
		return nil, mockerr.Configuration("request.body", "request body exceeds %d bytes", t.maxBodySize)
	}
	return body, nil
}

func (t *Transport) unmatched(req *http.Request, mreq *mock.Request, body []byte, noMatch error) (*http.Response, error) {
	if !t.engine.AllowsUnmocked(mreq.Origin) {
		return nil, noMatch
	}
	host := req.URL.Host
	if !t.netConnect.Allows(host) {
		t.log.Info("net connect blocked", "method", req.Method, "url", req.URL.String(), "policy", t.netConnect.String())
		return nil, &NetConnectError{Method: req.Method, URL: req.URL.String(), Host: host}
	}

	t.log.Debug("passing request through", "method", req.Method, "url", req.URL.String())
	t.engine.Requests().Log(&requestlog.Entry{
		Event:       requestlog.EventPassthrough,
		Method:      mreq.Method,
		Origin:      mreq.Origin,
		Path:        mreq.PathOnly(),
		QueryString: mreq.RawQuery(),
		Headers:     mreq.Headers,
		Body:        util.TruncateBody(mreq.Body, util.MaxLogBodySize),
		BodySize:    len(body),
	})

	out := req.Clone(req.Context())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
	}
	return t.base.RoundTrip(out)
}

func toMockRequest(req *http.Request, body []byte) (*mock.Request, error) {
	u := *req.URL
	if u.Host == "" {
		u.Host = req.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	headers := req.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if headers.Get("Host") == "" {
		host := req.Host
		if host == "" {
			host = u.Host
		}
		headers.Set("Host", host)
	}
	return mock.NewRequest(req.Method, u.String(), headers, string(decodeCharset(headers.Get("Content-Type"), body)))
}

// decodeCharset converts a body declared in a non-UTF-8 charset to UTF-8 so
// body matchers see text. Unknown charsets are left as is.
func decodeCharset(contentType string, body []byte) []byte {
	if len(body) == 0 || contentType == "" {
		return body
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return body
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}

func toHTTPResponse(req *http.Request, resp *engine.Response) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for name, values := range resp.Headers {
		header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	contentLength := int64(-1)
	if v := resp.Headers.Get("content-length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			contentLength = n
		}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          &timeoutBody{resp: resp, url: req.URL.String()},
		ContentLength: contentLength,
		Request:       req,
	}
}

// timeoutBody fails reads once the idle timeout fired.
type timeoutBody struct {
	resp *engine.Response
	url  string
}

func (b *timeoutBody) Read(p []byte) (int, error) {
	if b.resp.TimedOut() {
		_ = b.resp.Body.Close()
		return 0, &timeoutError{url: b.url}
	}
	return b.resp.Body.Read(p)
}

func (b *timeoutBody) Close() error {
	return b.resp.Body.Close()
}

// timeoutError satisfies net.Error.
type timeoutError struct {
	url string
}

func (e *timeoutError) Error() string   { return "idle timeout reading " + e.url }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

var _ http.RoundTripper = (*Transport)(nil)
