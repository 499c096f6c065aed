package mock

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/intercept/pkg/mockerr"
)

// MatcherKind identifies how a StringMatcher evaluates its input.
type MatcherKind string

const (
	KindExact MatcherKind = "exact"
	KindRegex MatcherKind = "regex"
	KindGlob  MatcherKind = "glob"
	KindFunc  MatcherKind = "func"
	KindExpr  MatcherKind = "expr"
)

// StringMatcher tests a single string value (a path or a header value).
// The evaluation function is chosen once, when the matcher is constructed.
type StringMatcher struct {
	kind   MatcherKind
	source string
	eval   func(string) bool
	err    error
}

// Exact matches s byte for byte.
func Exact(s string) StringMatcher {
	return StringMatcher{kind: KindExact, source: s, eval: func(v string) bool { return v == s }}
}

// Regex matches values the pattern finds a match in.
func Regex(pattern string) StringMatcher {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return StringMatcher{kind: KindRegex, source: pattern, err: mockerr.Configuration("matcher", "invalid regex %q: %v", pattern, err)}
	}
	return RegexOf(re)
}

// RegexOf wraps an already compiled regular expression.
func RegexOf(re *regexp.Regexp) StringMatcher {
	return StringMatcher{kind: KindRegex, source: re.String(), eval: re.MatchString}
}

// Glob matches with doublestar semantics: "*" stays within a segment and
// "**" crosses "/" boundaries.
func Glob(pattern string) StringMatcher {
	if !doublestar.ValidatePattern(pattern) {
		return StringMatcher{kind: KindGlob, source: pattern, err: mockerr.Configuration("matcher", "invalid glob %q", pattern)}
	}
	return StringMatcher{kind: KindGlob, source: pattern, eval: func(v string) bool {
		ok, err := doublestar.Match(pattern, v)
		return err == nil && ok
	}}
}

// Func matches when fn returns true.
func Func(fn func(string) bool) StringMatcher {
	if fn == nil {
		return StringMatcher{kind: KindFunc, err: mockerr.Configuration("matcher", "nil predicate")}
	}
	return StringMatcher{kind: KindFunc, source: "<func>", eval: fn}
}

// Expr matches when the expression evaluates to true. The candidate string
// is bound to "value":
//
//	mock.Expr(`value startsWith "/v1/" && len(value) < 64`)
func Expr(source string) StringMatcher {
	program, err := compileBoolExpr("string", source, stringExprEnv)
	if err != nil {
		return StringMatcher{kind: KindExpr, source: source, err: mockerr.Configuration("matcher", "%v", exprError(source, err))}
	}
	return StringMatcher{kind: KindExpr, source: source, eval: func(v string) bool {
		return runBoolExpr(program, map[string]any{"value": v})
	}}
}

// MatcherFrom converts a loosely typed path or header value to a matcher.
// Accepted: string, *regexp.Regexp, func(string) bool and StringMatcher.
func MatcherFrom(v any) StringMatcher {
	switch t := v.(type) {
	case StringMatcher:
		return t
	case string:
		return Exact(t)
	case *regexp.Regexp:
		return RegexOf(t)
	case func(string) bool:
		return Func(t)
	default:
		return StringMatcher{err: mockerr.Configuration("matcher", "unsupported matcher type %T", v)}
	}
}

// Match reports whether v satisfies the matcher. An unset or invalid matcher
// never matches.
func (m StringMatcher) Match(v string) bool {
	if m.eval == nil {
		return false
	}
	return m.eval(v)
}

// Kind returns the matcher kind.
func (m StringMatcher) Kind() MatcherKind { return m.kind }

// Source returns the literal, pattern or expression the matcher was built from.
func (m StringMatcher) Source() string { return m.source }

// Err returns the construction error, if any.
func (m StringMatcher) Err() error { return m.err }

// IsZero reports whether the matcher was never set.
func (m StringMatcher) IsZero() bool { return m.kind == "" && m.err == nil }

func (m StringMatcher) String() string {
	switch m.kind {
	case KindExact:
		return fmt.Sprintf("%q", m.source)
	case KindRegex:
		return "/" + m.source + "/"
	case "":
		return "<unset>"
	default:
		return string(m.kind) + "(" + m.source + ")"
	}
}

// HeaderMatcher requires a header to be present with a matching value.
type HeaderMatcher struct {
	Name  string
	Value StringMatcher
}

// NewHeaderMatcher lowercases name and converts value with MatcherFrom.
func NewHeaderMatcher(name string, value any) HeaderMatcher {
	return HeaderMatcher{Name: strings.ToLower(name), Value: MatcherFrom(value)}
}
