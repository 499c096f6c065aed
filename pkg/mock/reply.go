package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// ReplyKind identifies which reply branch an expectation uses.
type ReplyKind string

const (
	ReplyStatic   ReplyKind = "static"
	ReplyCallback ReplyKind = "callback"
	ReplyFull     ReplyKind = "full"
	ReplyError    ReplyKind = "error"
)

// HeaderFunc computes a reply header value. It runs once per request, after
// the body has been finalized.
type HeaderFunc func(req *Request, res *ReplyResult, body []byte) string

// ReplyResult is a resolved (status, body, headers) triple. Header values are
// string, []string or HeaderFunc.
type ReplyResult struct {
	Status  int
	Body    any
	Headers map[string]any
}

// Responder is the single internal form of every reply callback shape.
type Responder func(ctx context.Context, req *Request) (*ReplyResult, error)

// Result carries the outcome of an asynchronous callback.
type Result struct {
	Value any
	Err   error
}

// Callback shapes accepted by Interceptor.ReplyWith and Interceptor.ReplyFull.
type (
	// BodyFunc returns the body synchronously.
	BodyFunc func(req *Request) (any, error)
	// AsyncBodyFunc delivers the body on a channel.
	AsyncBodyFunc func(ctx context.Context, req *Request) <-chan Result
	// ContinuationBodyFunc reports the body through done.
	ContinuationBodyFunc func(req *Request, done func(body any, err error))

	// FullFunc returns status, body and headers synchronously.
	FullFunc func(req *Request) (*ReplyResult, error)
	// AsyncFullFunc delivers a *ReplyResult on a channel.
	AsyncFullFunc func(ctx context.Context, req *Request) <-chan Result
	// ContinuationFullFunc reports the result through done.
	ContinuationFullFunc func(req *Request, done func(res *ReplyResult, err error))
)

// Reply is the response descriptor of an expectation. Exactly one branch is
// populated, selected by Kind.
type Reply struct {
	Kind    ReplyKind
	Status  int
	Body    any
	Headers map[string]any
	// Responder is set for ReplyCallback and ReplyFull.
	Responder Responder
	// Error is the value raised for ReplyError.
	Error any
}

// Validate checks the reply invariants that can be decided before a request
// arrives.
func (r *Reply) Validate() error {
	switch r.Kind {
	case ReplyStatic:
		if err := validateStatus(r.Status); err != nil {
			return err
		}
		if r.Responder != nil || r.Error != nil {
			return mockerr.Configuration("reply", "static reply must not carry a callback or error")
		}
		if err := CheckEncodedBody(r.Headers, r.Body); err != nil {
			return err
		}
	case ReplyCallback:
		if err := validateStatus(r.Status); err != nil {
			return err
		}
		fallthrough
	case ReplyFull:
		if r.Responder == nil {
			return mockerr.Configuration("reply", "%s reply requires a callback", r.Kind)
		}
		if r.Body != nil || r.Error != nil {
			return mockerr.Configuration("reply", "callback reply must not carry a static body or error")
		}
	case ReplyError:
		if r.Error == nil {
			return mockerr.Configuration("reply", "error reply requires an error value")
		}
		if r.Responder != nil || r.Body != nil {
			return mockerr.Configuration("reply", "error reply must not carry a body or callback")
		}
	default:
		return mockerr.Configuration("reply", "no reply configured")
	}
	return ValidateHeaderValues(r.Headers)
}

func validateStatus(status int) error {
	if status < 100 || status > 999 {
		return mockerr.Configuration("reply.status", "invalid status code %d", status)
	}
	return nil
}

// NormalizeReplyHeaders lowercases header names, rejecting case collisions
// and illegal names.
func NormalizeReplyHeaders(h map[string]any) (map[string]any, error) {
	if len(h) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(h))
	seen := make(map[string]string, len(h))
	for name, v := range h {
		if !httputil.ValidHeaderName(name) {
			return nil, mockerr.Configuration("reply.headers", "invalid header name %q", name)
		}
		lower := strings.ToLower(name)
		if prev, ok := seen[lower]; ok {
			return nil, mockerr.Conflict("reply.headers", "%q and %q collide after lowercasing", prev, name)
		}
		seen[lower] = name
		out[lower] = v
	}
	return out, nil
}

// ValidateHeaderValues rejects values that are not a legal string, a
// []string, a scalar or a HeaderFunc.
func ValidateHeaderValues(h map[string]any) error {
	for name, v := range h {
		switch t := v.(type) {
		case string:
			if !httputil.ValidHeaderValue(t) {
				return mockerr.Configuration("reply.headers", "invalid value for %q", name)
			}
		case []string, HeaderFunc, func(*Request, *ReplyResult, []byte) string:
		default:
			if _, ok := scalarString(v); !ok {
				return mockerr.Configuration("reply.headers", "unsupported value type %T for %q", v, name)
			}
		}
	}
	return nil
}

// encodingHeaders are the fields that declare an encoded body.
var encodingHeaders = []string{"content-encoding", "transfer-encoding"}

// DeclaredEncoding returns the first non-identity content-encoding or
// transfer-encoding in headers, with its field name.
func DeclaredEncoding(headers map[string]any) (field, encoding string) {
	for _, name := range encodingHeaders {
		enc := strings.ToLower(strings.TrimSpace(headerString(headers, name)))
		if enc != "" && enc != "identity" {
			return name, enc
		}
	}
	return "", ""
}

// IsEncoded reports whether headers declare a non-identity content-encoding
// or transfer-encoding.
func IsEncoded(headers map[string]any) bool {
	_, enc := DeclaredEncoding(headers)
	return enc != ""
}

// CheckEncodedBody rejects a body that is not pre-encoded [][]byte chunks
// when headers declare an encoding.
func CheckEncodedBody(headers map[string]any, body any) error {
	field, enc := DeclaredEncoding(headers)
	if enc == "" {
		return nil
	}
	if _, ok := body.([][]byte); !ok {
		return mockerr.Configuration("reply.body", "%s %q requires pre-encoded [][]byte chunks, got %T", field, enc, body)
	}
	return nil
}

func headerString(headers map[string]any, name string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, name) {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case []string:
			return strings.Join(t, ", ")
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(t), true
	}
	return "", false
}

// HeaderValues renders a static header value. HeaderFunc values are not
// handled here.
func HeaderValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	}
	if s, ok := scalarString(v); ok {
		return []string{s}
	}
	return nil
}

// AsHeaderFunc returns v as a HeaderFunc when it is one.
func AsHeaderFunc(v any) (HeaderFunc, bool) {
	switch t := v.(type) {
	case HeaderFunc:
		return t, t != nil
	case func(*Request, *ReplyResult, []byte) string:
		return t, t != nil
	}
	return nil, false
}

// FromBodyFunc adapts a synchronous body callback.
func FromBodyFunc(status int, headers map[string]any, fn BodyFunc) Responder {
	return func(_ context.Context, req *Request) (*ReplyResult, error) {
		body, err := fn(req)
		if err != nil {
			return nil, err
		}
		return &ReplyResult{Status: status, Body: body, Headers: headers}, nil
	}
}

// FromAsyncBody adapts a channel-based body callback.
func FromAsyncBody(status int, headers map[string]any, fn AsyncBodyFunc) Responder {
	return func(ctx context.Context, req *Request) (*ReplyResult, error) {
		res, err := await(ctx, fn(ctx, req))
		if err != nil {
			return nil, err
		}
		return &ReplyResult{Status: status, Body: res, Headers: headers}, nil
	}
}

// FromContinuationBody adapts a continuation-style body callback. Calls to
// done after the first are ignored.
func FromContinuationBody(status int, headers map[string]any, fn ContinuationBodyFunc) Responder {
	return FromAsyncBody(status, headers, func(_ context.Context, req *Request) <-chan Result {
		return continuation(func(done func(any, error)) { fn(req, done) })
	})
}

// FromFullFunc adapts a synchronous full-reply callback.
func FromFullFunc(fn FullFunc) Responder {
	return func(_ context.Context, req *Request) (*ReplyResult, error) {
		return checkFull(fn(req))
	}
}

// FromAsyncFull adapts a channel-based full-reply callback.
func FromAsyncFull(fn AsyncFullFunc) Responder {
	return func(ctx context.Context, req *Request) (*ReplyResult, error) {
		v, err := await(ctx, fn(ctx, req))
		if err != nil {
			return nil, err
		}
		res, ok := v.(*ReplyResult)
		if !ok {
			return nil, mockerr.Configuration("reply", "full reply callback produced %T, want *ReplyResult", v)
		}
		return checkFull(res, nil)
	}
}

// FromContinuationFull adapts a continuation-style full-reply callback.
func FromContinuationFull(fn ContinuationFullFunc) Responder {
	return FromAsyncFull(func(_ context.Context, req *Request) <-chan Result {
		return continuation(func(done func(any, error)) {
			fn(req, func(res *ReplyResult, err error) { done(res, err) })
		})
	})
}

func checkFull(res *ReplyResult, err error) (*ReplyResult, error) {
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, mockerr.Configuration("reply", "full reply callback returned no result")
	}
	if err := validateStatus(res.Status); err != nil {
		return nil, err
	}
	return res, nil
}

func await(ctx context.Context, ch <-chan Result) (any, error) {
	if ch == nil {
		return nil, mockerr.Configuration("reply", "async callback returned a nil channel")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-ch:
		if !ok {
			return nil, mockerr.Configuration("reply", "async callback closed its channel without a result")
		}
		return r.Value, r.Err
	}
}

func continuation(start func(done func(any, error))) <-chan Result {
	ch := make(chan Result, 1)
	var once sync.Once
	start(func(v any, err error) {
		once.Do(func() { ch <- Result{Value: v, Err: err} })
	})
	return ch
}

// GzipChunks gzips each part independently so every chunk decodes on its own,
// the shape required for bodies declared with content-encoding: gzip.
func GzipChunks(parts ...[]byte) ([][]byte, error) {
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(p); err != nil {
			return nil, fmt.Errorf("gzip chunk: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip chunk: %w", err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

// GunzipChunks reverses GzipChunks.
func GunzipChunks(chunks [][]byte) ([]byte, error) {
	var out bytes.Buffer
	for i, c := range chunks {
		zr, err := gzip.NewReader(bytes.NewReader(c))
		if err != nil {
			return nil, fmt.Errorf("gunzip chunk %d: %w", i, err)
		}
		if _, err := io.Copy(&out, zr); err != nil {
			return nil, fmt.Errorf("gunzip chunk %d: %w", i, err)
		}
		_ = zr.Close()
	}
	return out.Bytes(), nil
}
