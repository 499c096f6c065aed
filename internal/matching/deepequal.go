package matching

import (
	"fmt"
	"regexp"
	"strconv"
)

// deepEqual compares a declared body value with a parsed one. Regex leaves
// test the stringified actual value. Numbers never equal strings, so "1"
// and 1 differ.
func deepEqual(expected, actual any) bool {
	switch e := expected.(type) {
	case *regexp.Regexp:
		s, ok := leafString(actual)
		return ok && e.MatchString(s)
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !deepEqual(ev, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !deepEqual(e[i], a[i]) {
				return false
			}
		}
		return true
	case float64:
		a, ok := actual.(float64)
		return ok && a == e
	case string:
		a, ok := actual.(string)
		return ok && a == e
	case bool:
		a, ok := actual.(bool)
		return ok && a == e
	case nil:
		return actual == nil
	default:
		return false
	}
}

// stringifyLeaves converts every scalar leaf to its string form, keeping
// regex leaves. Form bodies only carry strings, so declared values are
// compared in that shape.
func stringifyLeaves(v any) any {
	switch t := v.(type) {
	case *regexp.Regexp:
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = stringifyLeaves(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = stringifyLeaves(item)
		}
		return out
	default:
		s, _ := leafString(t)
		return s
	}
}

func leafString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}
