package mock

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// Request is the normalized descriptor of an outbound request. The body has
// already been read in full.
type Request struct {
	Method string
	// Origin is scheme://host:port with an explicit port.
	Origin string
	// Path includes the raw query string, if any.
	Path    string
	Headers httputil.Header
	Body    string
	// IdleTimeout is the socket idle threshold requested by the caller.
	// Zero disables idle detection.
	IdleTimeout time.Duration
}

// NewRequest builds a Request from a method, an absolute URL, headers and body.
func NewRequest(method, rawURL string, headers map[string][]string, body string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing request url: %w", err)
	}
	origin, err := NormalizeOrigin(u.Scheme + "://" + u.Host)
	if err != nil {
		return nil, err
	}
	h, err := httputil.NormalizeHeaders(headers)
	if err != nil {
		return nil, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return &Request{
		Method:  strings.ToUpper(method),
		Origin:  origin,
		Path:    path,
		Headers: h,
		Body:    body,
	}, nil
}

// PathOnly returns the path without its query string.
func (r *Request) PathOnly() string {
	p, _, _ := strings.Cut(r.Path, "?")
	return p
}

// RawQuery returns the query string without the leading "?".
func (r *Request) RawQuery() string {
	_, q, _ := strings.Cut(r.Path, "?")
	return q
}

// URL returns the absolute request URL.
func (r *Request) URL() string {
	return r.Origin + r.Path
}

// Clone returns a copy of r whose headers can be modified independently.
func (r *Request) Clone() *Request {
	c := *r
	c.Headers = r.Headers.Clone()
	return &c
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeOrigin lowercases scheme and host and makes the port explicit,
// so "HTTPS://Example.com" becomes "https://example.com:443".
func NormalizeOrigin(origin string) (string, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return "", mockerr.Configuration("origin", "invalid origin %q: %v", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", mockerr.Configuration("origin", "origin %q must include scheme and host", origin)
	}
	if u.Path != "" && u.Path != "/" {
		return "", mockerr.Configuration("origin", "origin %q must not include a path", origin)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		port = defaultPorts[scheme]
	}
	if port == "" {
		return "", mockerr.Configuration("origin", "origin %q has no port and scheme %q has no default", origin, scheme)
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

// OriginHost returns host[:port] for an origin, omitting the scheme's
// default port.
func OriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return origin
	}
	if defaultPorts[u.Scheme] == u.Port() {
		return u.Hostname()
	}
	return u.Host
}
