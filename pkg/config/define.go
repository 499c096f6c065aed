package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/util"
)

// Define registers every definition on e and returns the expectations in
// declaration order. It stops at the first error; expectations registered
// before it stay registered.
func Define(e *engine.Engine, defs *Definitions) ([]*mock.Expectation, error) {
	var out []*mock.Expectation
	for i, sd := range defs.Scopes {
		baseDir := sd.baseDir
		if baseDir == "" {
			baseDir = defs.baseDir
		}
		opts, err := sd.options()
		if err != nil {
			return out, fmt.Errorf("scopes[%d]: %w", i, err)
		}
		scope := e.Scope(sd.Origin, opts...)
		if err := scope.Err(); err != nil {
			return out, fmt.Errorf("scopes[%d]: %w", i, err)
		}
		for j, in := range sd.Interceptors {
			exp, err := in.register(scope, baseDir)
			if err != nil {
				return out, fmt.Errorf("scopes[%d].interceptors[%d]: %w", i, j, err)
			}
			out = append(out, exp)
		}
	}
	return out, nil
}

func (sd ScopeDef) options() ([]mock.ScopeOption, error) {
	var opts []mock.ScopeOption
	for _, name := range slices.Sorted(maps.Keys(sd.ReqHeaders)) {
		m, err := sd.ReqHeaders[name].Matcher()
		if err != nil {
			return nil, fmt.Errorf("reqheaders.%s: %w", name, err)
		}
		opts = append(opts, mock.WithRequiredHeader(name, m))
	}
	if len(sd.BadHeaders) > 0 {
		opts = append(opts, mock.WithForbiddenHeaders(sd.BadHeaders...))
	}
	if len(sd.DefaultReplyHeaders) > 0 {
		opts = append(opts, mock.WithDefaultReplyHeaders(sd.DefaultReplyHeaders))
	}
	if sd.ReplyDate != nil {
		opts = append(opts, mock.WithReplyDate(*sd.ReplyDate))
	}
	if sd.ContentLength {
		opts = append(opts, mock.WithContentLength())
	}
	if sd.AllowUnmocked {
		opts = append(opts, mock.WithAllowUnmocked())
	}
	if sd.Persist {
		opts = append(opts, mock.WithPersistAll())
	}
	return opts, nil
}

func (in InterceptorDef) register(s *mock.Scope, baseDir string) (*mock.Expectation, error) {
	path, err := in.Path.Matcher()
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	method := strings.ToUpper(in.Method)
	if method == "" {
		method = "GET"
	}

	var pathArg any = path
	if path.Kind() == mock.KindExact {
		// plain strings may carry a query after "?"
		pathArg = in.Path.Exact
	}
	i := s.Intercept(method, pathArg)
	if in.Query != nil {
		i.Query(in.Query)
	}
	for _, name := range slices.Sorted(maps.Keys(in.Headers)) {
		m, err := in.Headers[name].Matcher()
		if err != nil {
			return nil, fmt.Errorf("headers.%s: %w", name, err)
		}
		i.MatchHeader(name, m)
	}
	if len(in.BadHeaders) > 0 {
		i.BadHeaders(in.BadHeaders...)
	}
	if body, ok, err := in.bodyMatcher(); err != nil {
		return nil, err
	} else if ok {
		i.Body(body)
	}

	if in.Times > 0 {
		i.Times(in.Times)
	}
	if in.Persist {
		i.Persist()
	}
	if in.Optional {
		i.Optionally()
	}
	i.DelayHeaders(in.DelayHeaders).DelayBody(in.DelayBody).SocketDelay(in.SocketDelay)

	if in.Reply.Error != "" {
		return i.ReplyWithError(in.Reply.Error)
	}
	body, headers, err := in.Reply.resolve(baseDir)
	if err != nil {
		return nil, err
	}
	status := in.Reply.Status
	if status == 0 {
		status = 200
	}
	return i.Reply(status, body, headers)
}

func (in InterceptorDef) bodyMatcher() (mock.BodyMatcher, bool, error) {
	switch {
	case in.Body != nil:
		m, err := mock.BodyEquals(in.Body)
		return m, true, err
	case in.BodyRegex != "":
		re, err := regexp.Compile(in.BodyRegex)
		if err != nil {
			return mock.BodyMatcher{}, false, mockerr.Configuration("bodyRegex", "%v", err)
		}
		return mock.BodyRegexp(re), true, nil
	case len(in.BodyJSONPath) > 0:
		m, err := mock.BodyJSONPaths(in.BodyJSONPath)
		return m, true, err
	case in.BodySchema != nil:
		schema, ok := in.BodySchema.(string)
		if !ok {
			data, err := json.Marshal(in.BodySchema)
			if err != nil {
				return mock.BodyMatcher{}, false, mockerr.Configuration("bodySchema", "%v", err)
			}
			schema = string(data)
		}
		m, err := mock.BodyMatchesSchema(schema)
		return m, true, err
	case in.BodyExpr != "":
		m, err := mock.BodyExpression(in.BodyExpr)
		return m, true, err
	}
	return mock.BodyMatcher{}, false, nil
}

// resolve returns the reply body and headers, reading File relative to
// baseDir. A .json file gets an application/json content type unless one is
// declared.
func (r ReplyDef) resolve(baseDir string) (any, map[string]any, error) {
	if r.File == "" {
		return r.Body, r.Headers, nil
	}
	clean, ok := util.SafeFilePath(r.File)
	if !ok {
		return nil, nil, mockerr.Configuration("reply.file", "invalid file path %q", r.File)
	}
	data, err := os.ReadFile(filepath.Join(baseDir, clean))
	if err != nil {
		return nil, nil, mockerr.Configuration("reply.file", "%v", err)
	}

	headers := r.Headers
	if strings.EqualFold(filepath.Ext(clean), ".json") && !hasHeader(headers, "content-type") {
		headers = maps.Clone(headers)
		if headers == nil {
			headers = map[string]any{}
		}
		headers["content-type"] = "application/json"
	}
	return data, headers, nil
}

func hasHeader(headers map[string]any, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
