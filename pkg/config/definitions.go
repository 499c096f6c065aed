package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// Definitions is the content of a definitions file.
type Definitions struct {
	Engine *EngineConfig `yaml:"engine,omitempty"`
	Scopes []ScopeDef    `yaml:"scopes"`

	baseDir string
}

// ScopeDef declares a scope and its interceptors.
type ScopeDef struct {
	Origin string `yaml:"origin"`
	// ReqHeaders must be present on every request of the scope.
	ReqHeaders map[string]MatcherDef `yaml:"reqheaders,omitempty"`
	// BadHeaders must be absent.
	BadHeaders          []string       `yaml:"badheaders,omitempty"`
	DefaultReplyHeaders map[string]any `yaml:"defaultReplyHeaders,omitempty"`
	ReplyDate           *time.Time     `yaml:"replyDate,omitempty"`
	ContentLength       bool           `yaml:"contentLength,omitempty"`
	AllowUnmocked       bool           `yaml:"allowUnmocked,omitempty"`
	Persist             bool           `yaml:"persist,omitempty"`

	Interceptors []InterceptorDef `yaml:"interceptors"`

	baseDir string
}

// InterceptorDef declares one expectation.
type InterceptorDef struct {
	Method string     `yaml:"method,omitempty"`
	Path   MatcherDef `yaml:"path"`
	// Query is true (any query) or a mapping of exact values.
	Query   any                   `yaml:"query,omitempty"`
	Headers map[string]MatcherDef `yaml:"headers,omitempty"`
	// BadHeaders must be absent.
	BadHeaders []string `yaml:"badheaders,omitempty"`

	// At most one body matcher may be set.
	Body         any            `yaml:"body,omitempty"`
	BodyRegex    string         `yaml:"bodyRegex,omitempty"`
	BodyJSONPath map[string]any `yaml:"bodyJSONPath,omitempty"`
	BodySchema   any            `yaml:"bodySchema,omitempty"`
	BodyExpr     string         `yaml:"bodyExpr,omitempty"`

	Times    int  `yaml:"times,omitempty"`
	Persist  bool `yaml:"persist,omitempty"`
	Optional bool `yaml:"optional,omitempty"`

	DelayHeaders time.Duration `yaml:"delayHeaders,omitempty"`
	DelayBody    time.Duration `yaml:"delayBody,omitempty"`
	SocketDelay  time.Duration `yaml:"socketDelay,omitempty"`

	Reply ReplyDef `yaml:"reply"`
}

// ReplyDef declares the response. Error replaces the response with a
// simulated request error.
type ReplyDef struct {
	Status  int            `yaml:"status,omitempty"`
	Body    any            `yaml:"body,omitempty"`
	File    string         `yaml:"file,omitempty"`
	Headers map[string]any `yaml:"headers,omitempty"`
	Error   string         `yaml:"error,omitempty"`
}

// MatcherDef is a string matcher. A plain scalar is an exact match; a
// mapping sets exactly one of its fields.
type MatcherDef struct {
	Exact string `yaml:"exact,omitempty"`
	Regex string `yaml:"regex,omitempty"`
	Glob  string `yaml:"glob,omitempty"`
	Expr  string `yaml:"expr,omitempty"`
}

// UnmarshalYAML accepts either a scalar or a mapping.
func (m *MatcherDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&m.Exact)
	}
	type alias MatcherDef
	return node.Decode((*alias)(m))
}

// IsZero reports whether no field is set.
func (m MatcherDef) IsZero() bool {
	return m == MatcherDef{}
}

// Matcher builds the string matcher.
func (m MatcherDef) Matcher() (mock.StringMatcher, error) {
	var (
		out mock.StringMatcher
		n   int
	)
	if m.Exact != "" {
		out, n = mock.Exact(m.Exact), n+1
	}
	if m.Regex != "" {
		out, n = mock.Regex(m.Regex), n+1
	}
	if m.Glob != "" {
		out, n = mock.Glob(m.Glob), n+1
	}
	if m.Expr != "" {
		out, n = mock.Expr(m.Expr), n+1
	}
	switch n {
	case 0:
		return mock.StringMatcher{}, mockerr.Configuration("matcher", "empty matcher")
	case 1:
		return out, out.Err()
	default:
		return mock.StringMatcher{}, mockerr.Configuration("matcher", "set only one of exact, regex, glob, expr")
	}
}

// ParseDefinitions parses a YAML or JSON definitions document. Environment
// references are expanded first. Reply body files resolve against the
// working directory.
func ParseDefinitions(data []byte) (*Definitions, error) {
	return parseDefinitions([]byte(ExpandEnvVars(string(data))))
}

func parseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := decodeStrict(data, &defs); err != nil {
		return nil, err
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

// Validate checks the structure of the document. Matchers are compiled by
// Define.
func (d *Definitions) Validate() error {
	var errs []error
	if d.Engine != nil {
		if err := d.Engine.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(d.Scopes) == 0 {
		errs = append(errs, mockerr.Configuration("scopes", "no scopes defined"))
	}
	for i, s := range d.Scopes {
		field := fmt.Sprintf("scopes[%d]", i)
		if s.Origin == "" {
			errs = append(errs, mockerr.Configuration(field+".origin", "origin is required"))
		} else if _, err := mock.NormalizeOrigin(s.Origin); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		for j, in := range s.Interceptors {
			if err := in.validate(fmt.Sprintf("%s.interceptors[%d]", field, j)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (in InterceptorDef) validate(field string) error {
	var errs []error
	if in.Path.IsZero() {
		errs = append(errs, mockerr.Configuration(field+".path", "path is required"))
	}
	if n := in.bodyMatcherCount(); n > 1 {
		errs = append(errs, mockerr.Configuration(field+".body", "%d body matchers set, at most one allowed", n))
	}
	if in.Times < 0 {
		errs = append(errs, mockerr.Configuration(field+".times", "must not be negative"))
	}
	r := in.Reply
	if r.Error != "" && (r.Status != 0 || r.Body != nil || r.File != "") {
		errs = append(errs, mockerr.Configuration(field+".reply", "error replies take no status or body"))
	}
	if r.Body != nil && r.File != "" {
		errs = append(errs, mockerr.Configuration(field+".reply", "set body or file, not both"))
	}
	if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
		errs = append(errs, mockerr.Configuration(field+".reply.status", "invalid status %d", r.Status))
	}
	return errors.Join(errs...)
}

func (in InterceptorDef) bodyMatcherCount() int {
	n := 0
	for _, set := range []bool{
		in.Body != nil,
		in.BodyRegex != "",
		len(in.BodyJSONPath) > 0,
		in.BodySchema != nil,
		in.BodyExpr != "",
	} {
		if set {
			n++
		}
	}
	return n
}
