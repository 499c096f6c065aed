package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/util"
)

// Playback produces the reply of a match. It returns once the head delay has
// elapsed; the body is then pulled from the response's BodyStream.
//
// Error expectations return a *mockerr.SimulatedRequestError after the head
// delay. Callback errors are returned wrapped. Cancelling ctx aborts the
// playback at any point before the body is fully read.
func (e *Engine) Playback(ctx context.Context, m *Match) (*Response, error) {
	if m == nil || m.Expectation == nil || m.Request == nil {
		return nil, mockerr.Configuration("match", "incomplete match")
	}
	exp, req := m.Expectation, m.Request

	r := newResponse(m.ID, req.IdleTimeout, e.finished(m))
	r.startIdle(exp.SocketDelay)

	if err := r.waitHead(ctx, exp.HeadDelay); err != nil {
		return nil, err
	}

	if exp.Reply.Kind == mock.ReplyError {
		err := &mockerr.SimulatedRequestError{Value: exp.Reply.Error}
		r.abort(err)
		return nil, err
	}

	replyReq := m.replyRequest()
	res, err := resolveReply(ctx, exp, replyReq)
	if err != nil {
		r.abort(err)
		return nil, err
	}

	chunks, contentType, err := encodeBody(res.Body)
	if err != nil {
		r.abort(err)
		return nil, err
	}
	body := bytes.Join(chunks, nil)

	headers, err := mergeHeaders(exp.Scope, replyReq, res, body, contentType)
	if err != nil {
		r.abort(err)
		return nil, err
	}

	r.Status = res.Status
	r.Headers = headers
	r.RawHeaders = httputil.ToRawHeaderList(headers)
	r.Body = newBodyStream(r, chunks)
	r.sendHeaders(ctx, exp.BodyDelay)

	e.log.Debug("reply headers sent",
		"match", m.ID,
		"status", r.Status,
		"expectation", exp.String(),
		"body_delay", exp.BodyDelay,
	)
	e.requests.Log(&requestlog.Entry{
		Timestamp:      m.MatchedAt,
		Event:          requestlog.EventReplied,
		Method:         req.Method,
		Origin:         req.Origin,
		Path:           req.PathOnly(),
		QueryString:    req.RawQuery(),
		Headers:        req.Headers,
		Body:           util.TruncateBody(req.Body, util.MaxLogBodySize),
		BodySize:       len(req.Body),
		ExpectationID:  exp.ID,
		DeclaredOrigin: m.DeclaredOrigin,
		ResponseStatus: r.Status,
		DurationMs:     int(e.now().Sub(m.MatchedAt).Milliseconds()),
	})
	return r, nil
}

// replyRequest is the request handed to reply callbacks and HeaderFuncs. A
// match reached through an origin filter presents the declared origin and
// host instead of the actual ones.
func (m *Match) replyRequest() *mock.Request {
	if m.DeclaredOrigin == "" {
		return m.Request
	}
	req := m.Request.Clone()
	req.Origin = m.DeclaredOrigin
	if req.Headers == nil {
		req.Headers = httputil.Header{}
	}
	req.Headers.Set("host", mock.OriginHost(m.DeclaredOrigin))
	return req
}

// finished returns the hook run when a playback completes or aborts.
func (e *Engine) finished(m *Match) func(*Response) {
	return func(r *Response) {
		if r.State() == StateComplete {
			e.log.Debug("reply complete", "match", m.ID)
			return
		}
		err := r.Err()
		e.log.Warn("playback aborted", "match", m.ID, "expectation", m.Expectation.String(), "error", err)
		e.requests.Log(&requestlog.Entry{
			Event:          requestlog.EventError,
			Method:         m.Request.Method,
			Origin:         m.Request.Origin,
			Path:           m.Request.PathOnly(),
			QueryString:    m.Request.RawQuery(),
			ExpectationID:  m.Expectation.ID,
			DeclaredOrigin: m.DeclaredOrigin,
			Error:          fmt.Sprint(err),
		})
	}
}

// resolveReply turns the expectation's reply into a concrete result.
func resolveReply(ctx context.Context, exp *mock.Expectation, req *mock.Request) (*mock.ReplyResult, error) {
	reply := exp.Reply
	switch reply.Kind {
	case mock.ReplyStatic:
		return &mock.ReplyResult{Status: reply.Status, Body: reply.Body, Headers: reply.Headers}, nil
	case mock.ReplyCallback, mock.ReplyFull:
		res, err := reply.Responder(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("reply callback: %w", err)
		}
		headers, err := mock.NormalizeReplyHeaders(res.Headers)
		if err != nil {
			return nil, err
		}
		if err := mock.ValidateHeaderValues(headers); err != nil {
			return nil, err
		}
		res = &mock.ReplyResult{Status: res.Status, Body: res.Body, Headers: headers}
		if err := mock.CheckEncodedBody(res.Headers, res.Body); err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, mockerr.Configuration("reply", "no reply configured")
	}
}

// encodeBody renders a reply body as chunks. Values other than bytes, strings
// and readers are JSON encoded and report application/json as their computed
// content type.
func encodeBody(body any) ([][]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case [][]byte:
		return b, "", nil
	case []byte:
		return [][]byte{b}, "", nil
	case string:
		return [][]byte{[]byte(b)}, "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if c, ok := b.(io.Closer); ok {
			_ = c.Close()
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading reply body: %w", err)
		}
		return [][]byte{data}, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", mockerr.Configuration("reply.body", "encoding %T as JSON: %v", body, err)
		}
		return [][]byte{data}, "application/json", nil
	}
}

// mergeHeaders builds the reply headers. Later layers win: scope defaults,
// computed headers, the reply's own headers, then the scope's fixed date.
// HeaderFunc values are evaluated once, after every layer is applied.
func mergeHeaders(scope *mock.Scope, req *mock.Request, res *mock.ReplyResult, body []byte, contentType string) (httputil.Header, error) {
	h := httputil.Header{}
	deferred := map[string]mock.HeaderFunc{}

	apply := func(src map[string]any) {
		for name, v := range src {
			name = strings.ToLower(name)
			if fn, ok := mock.AsHeaderFunc(v); ok {
				h.Del(name)
				deferred[name] = fn
				continue
			}
			delete(deferred, name)
			h.Set(name, mock.HeaderValues(v)...)
		}
	}
	set := func(name, value string) {
		delete(deferred, name)
		h.Set(name, value)
	}

	if scope != nil {
		apply(scope.DefaultHeaders)
	}
	if contentType != "" {
		set("content-type", contentType)
	}
	if scope != nil && scope.ContentLength && !mock.IsEncoded(res.Headers) {
		set("content-length", strconv.Itoa(len(body)))
	}
	apply(res.Headers)

	for name, fn := range deferred {
		value := fn(req, res, body)
		if !httputil.ValidHeaderValue(value) {
			return nil, mockerr.Configuration("reply.headers."+name, "computed value %q is not a valid header value", value)
		}
		h.Set(name, value)
	}
	if scope != nil && !scope.ReplyDate.IsZero() {
		h.Set("date", scope.ReplyDate.UTC().Format(http.TimeFormat))
	}
	return h, nil
}
