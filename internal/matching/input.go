package matching

import (
	"encoding/json"
	"strings"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mock"
)

// input is a request as seen by one expectation: the scope's path and body
// filters are applied, and parsed forms are computed on first use.
type input struct {
	req  *mock.Request
	path string
	body string

	query      map[string]any
	queryErr   error
	queryDone  bool
	parsed     any
	parsedDone bool
}

func newInput(exp *mock.Expectation, req *mock.Request) *input {
	in := &input{req: req, path: req.Path, body: req.Body}
	if s := exp.Scope; s != nil {
		if s.PathFilter != nil {
			in.path = s.PathFilter(in.path)
		}
		if s.BodyFilter != nil {
			in.body = s.BodyFilter(in.body)
		}
	}
	return in
}

func (in *input) pathOnly() string {
	p, _, _ := strings.Cut(in.path, "?")
	return p
}

func (in *input) parsedQuery() (map[string]any, error) {
	if !in.queryDone {
		_, raw, _ := strings.Cut(in.path, "?")
		in.query, in.queryErr = httputil.ParseQuery(raw)
		in.queryDone = true
	}
	return in.query, in.queryErr
}

func (in *input) contentType() string {
	return strings.ToLower(in.req.Headers.Get("content-type"))
}

func (in *input) isMultipart() bool {
	return strings.Contains(in.contentType(), "multipart")
}

func (in *input) isURLEncoded() bool {
	return strings.Contains(in.contentType(), "application/x-www-form-urlencoded")
}

// parsedBody returns the body as JSON when it parses, as a form map when the
// content type is urlencoded, and as the raw string otherwise. Bracket keys
// are expanded.
func (in *input) parsedBody() any {
	if in.parsedDone {
		return in.parsed
	}
	in.parsedDone = true

	var v any
	if err := json.Unmarshal([]byte(in.body), &v); err == nil {
		in.parsed = httputil.ExpandKeys(v)
		return in.parsed
	}
	if in.isURLEncoded() {
		if form, err := httputil.ParseQuery(in.body); err == nil {
			in.parsed = form
			return in.parsed
		}
	}
	in.parsed = in.body
	return in.parsed
}

func (in *input) headerMap() map[string]string {
	out := make(map[string]string, len(in.req.Headers))
	for k := range in.req.Headers {
		out[k] = in.req.Headers.Get(k)
	}
	return out
}

// stripNewlines removes CR and LF so bodies compare equal across platforms.
func stripNewlines(s string) string {
	return strings.NewReplacer("\r\n", "", "\r", "", "\n", "").Replace(s)
}
