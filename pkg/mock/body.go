package mock

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/intercept/pkg/httputil"
	"github.com/getmockd/intercept/pkg/mockerr"
)

// BodyKind identifies how a BodyMatcher evaluates a request body.
type BodyKind string

const (
	BodyUnset    BodyKind = ""
	BodyLiteral  BodyKind = "literal"
	BodyRegex    BodyKind = "regex"
	BodyCallback BodyKind = "func"
	BodyJSONPath BodyKind = "jsonpath"
	BodySchema   BodyKind = "schema"
	BodyExpr     BodyKind = "expr"
)

// JSONPathCondition is one compiled JSONPath requirement. Expected may be
// {"exists": bool} to test presence only.
type JSONPathCondition struct {
	Path     string
	Expr     jp.Expr
	Expected any
}

// BodyMatcher is the body stage of an expectation.
type BodyMatcher struct {
	Kind BodyKind
	// Literal is either a string or a normalized structure: numbers as
	// float64, bracket keys expanded, *regexp.Regexp leaves kept.
	Literal    any
	Regex      *regexp.Regexp
	Fn         func(body any) bool
	Conditions []JSONPathCondition
	Schema     *jsonschema.Schema
	Program    *vm.Program
	Source     string
}

// IsSet reports whether the matcher constrains the body.
func (b BodyMatcher) IsSet() bool {
	return b.Kind != BodyUnset
}

// BodyEquals matches a literal body. Strings and byte slices compare against
// the raw body; any other value is compared structurally with the parsed body.
func BodyEquals(v any) (BodyMatcher, error) {
	switch t := v.(type) {
	case string:
		return BodyMatcher{Kind: BodyLiteral, Literal: t}, nil
	case []byte:
		return BodyMatcher{Kind: BodyLiteral, Literal: string(t)}, nil
	}
	norm, err := NormalizeValue(v)
	if err != nil {
		return BodyMatcher{}, mockerr.Configuration("body", "%v", err)
	}
	return BodyMatcher{Kind: BodyLiteral, Literal: httputil.ExpandKeys(norm)}, nil
}

// BodyRegexp matches the newline-normalized raw body against re.
func BodyRegexp(re *regexp.Regexp) BodyMatcher {
	return BodyMatcher{Kind: BodyRegex, Regex: re, Source: re.String()}
}

// BodyPredicate calls fn with the parsed body.
func BodyPredicate(fn func(body any) bool) BodyMatcher {
	return BodyMatcher{Kind: BodyCallback, Fn: fn}
}

// BodyJSONPaths requires every condition to hold on the JSON body.
func BodyJSONPaths(conditions map[string]any) (BodyMatcher, error) {
	out := make([]JSONPathCondition, 0, len(conditions))
	for path, expected := range conditions {
		x, err := jp.ParseString(path)
		if err != nil {
			return BodyMatcher{}, mockerr.Configuration("body", "invalid JSONPath %q: %v", path, err)
		}
		out = append(out, JSONPathCondition{Path: path, Expr: x, Expected: expected})
	}
	return BodyMatcher{Kind: BodyJSONPath, Conditions: out}, nil
}

// BodyMatchesSchema validates the JSON body against a JSON Schema document
// (draft 2020-12).
func BodyMatchesSchema(schema string) (BodyMatcher, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("body.json", strings.NewReader(schema)); err != nil {
		return BodyMatcher{}, mockerr.Configuration("body", "invalid schema: %v", err)
	}
	compiled, err := compiler.Compile("body.json")
	if err != nil {
		return BodyMatcher{}, mockerr.Configuration("body", "invalid schema: %v", err)
	}
	return BodyMatcher{Kind: BodySchema, Schema: compiled, Source: schema}, nil
}

// BodyExpression matches when the expression evaluates to true. The parsed
// body is bound to "body", the raw text to "raw" and request headers to
// "headers".
func BodyExpression(source string) (BodyMatcher, error) {
	program, err := compileBoolExpr("body", source, nil)
	if err != nil {
		return BodyMatcher{}, mockerr.Configuration("body", "%v", exprError(source, err))
	}
	return BodyMatcher{Kind: BodyExpr, Program: program, Source: source}, nil
}

// bodyFrom converts the loosely typed argument of Interceptor body matching.
func bodyFrom(v any) (BodyMatcher, error) {
	switch t := v.(type) {
	case BodyMatcher:
		return t, nil
	case *regexp.Regexp:
		return BodyRegexp(t), nil
	case func(any) bool:
		if t == nil {
			return BodyMatcher{}, mockerr.Configuration("body", "nil predicate")
		}
		return BodyPredicate(t), nil
	default:
		return BodyEquals(v)
	}
}

// NormalizeValue converts v to the generic shape encoding/json decodes into:
// map[string]any, []any, float64, string, bool and nil. *regexp.Regexp
// leaves are preserved.
func NormalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, *regexp.Regexp:
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := NormalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := NormalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return rv.Float(), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Eval runs the compiled expression of a BodyExpr matcher against env.
func (b BodyMatcher) Eval(env map[string]any) bool {
	if b.Program == nil {
		return false
	}
	return runBoolExpr(b.Program, env)
}
