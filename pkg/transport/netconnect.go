package transport

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/intercept/pkg/mockerr"
)

// NetConnect decides which hosts unmatched requests may reach. The zero value
// allows every host.
type NetConnect struct {
	mu       sync.RWMutex
	disabled bool
	allow    []hostMatcher
}

type hostMatcher struct {
	source string
	match  func(hostport, host string) bool
}

// AllowAll returns a policy that lets every host through.
func AllowAll() *NetConnect {
	return &NetConnect{}
}

// DenyAll returns a policy that blocks every host.
func DenyAll() *NetConnect {
	return &NetConnect{disabled: true}
}

// Disable blocks every host and forgets the allow list.
func (n *NetConnect) Disable() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = true
	n.allow = nil
}

// Enable allows real connections. With no matchers every host is allowed;
// otherwise only hosts accepted by one of them. A matcher is a doublestar glob
// string tested against "host" and "host:port", a *regexp.Regexp, or a
// func(hostport string) bool.
func (n *NetConnect) Enable(matchers ...any) error {
	compiled := make([]hostMatcher, 0, len(matchers))
	for _, m := range matchers {
		hm, err := compileHostMatcher(m)
		if err != nil {
			return err
		}
		compiled = append(compiled, hm)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = false
	n.allow = compiled
	return nil
}

// Allows reports whether a connection to hostport may be made.
func (n *NetConnect) Allows(hostport string) bool {
	if n == nil {
		return true
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.disabled {
		return false
	}
	if len(n.allow) == 0 {
		return true
	}
	host := hostport
	if i := strings.LastIndexByte(hostport, ':'); i > 0 && !strings.HasSuffix(hostport, "]") {
		host = hostport[:i]
	}
	for _, m := range n.allow {
		if m.match(hostport, host) {
			return true
		}
	}
	return false
}

// String describes the policy for logs.
func (n *NetConnect) String() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	switch {
	case n.disabled:
		return "disabled"
	case len(n.allow) == 0:
		return "enabled"
	}
	sources := make([]string, len(n.allow))
	for i, m := range n.allow {
		sources[i] = m.source
	}
	return "enabled for " + strings.Join(sources, ", ")
}

func compileHostMatcher(m any) (hostMatcher, error) {
	switch t := m.(type) {
	case string:
		if !doublestar.ValidatePattern(t) {
			return hostMatcher{}, mockerr.Configuration("netconnect", "invalid host pattern %q", t)
		}
		return hostMatcher{source: t, match: func(hostport, host string) bool {
			return globMatch(t, hostport) || globMatch(t, host)
		}}, nil
	case *regexp.Regexp:
		if t == nil {
			break
		}
		return hostMatcher{source: t.String(), match: func(hostport, _ string) bool {
			return t.MatchString(hostport)
		}}, nil
	case func(string) bool:
		if t == nil {
			break
		}
		return hostMatcher{source: "func", match: func(hostport, _ string) bool {
			return t(hostport)
		}}, nil
	}
	return hostMatcher{}, mockerr.Configuration("netconnect", "unsupported host matcher %T", m)
}

// globMatch matches host names with "." as the separator, so "*.example.com"
// covers one label and "**.example.com" any number.
func globMatch(pattern, host string) bool {
	ok, err := doublestar.Match(
		strings.ReplaceAll(pattern, ".", "/"),
		strings.ReplaceAll(host, ".", "/"),
	)
	return err == nil && ok
}

// NetConnectError is returned for an unmatched request to a host the policy
// blocks.
type NetConnectError struct {
	Method string
	URL    string
	Host   string
}

func (e *NetConnectError) Error() string {
	return fmt.Sprintf("net connect not allowed for %s %s (host %s)", e.Method, e.URL, e.Host)
}
