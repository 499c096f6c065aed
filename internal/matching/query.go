package matching

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/getmockd/intercept/pkg/mock"
)

// evalQuery applies the expectation's query matcher. An exact matcher needs
// the same number of top-level keys as the request, so a subset never
// matches by accident.
func evalQuery(exp *mock.Expectation, in *input) FieldResult {
	q := exp.Query
	fr := FieldResult{Field: "query"}

	if q.Kind == mock.QueryAny {
		fr.Matched = true
		fr.Score = ScoreQueryAny
		fr.MaxScore = ScoreQueryAny
		return fr
	}

	actual, err := in.parsedQuery()
	if err != nil {
		fr.MaxScore = ScoreQueryAny
		fr.Actual = "(unparseable query)"
		return fr
	}

	switch q.Kind {
	case mock.QueryFunc:
		fr.MaxScore = ScoreQueryAny
		fr.Expected = "<func>"
		fr.Actual = actual
		if q.Fn(actual) {
			fr.Matched = true
			fr.Score = ScoreQueryAny
		}
	case mock.QueryExact:
		fr.MaxScore = len(q.Values) * ScoreQueryParam
		fr.Expected = q.Values
		fr.Actual = actual
		fr.Matched = len(q.Values) == len(actual)

		keys := make([]string, 0, len(q.Values))
		for k := range q.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		details := make([]HeaderDetail, 0, len(keys))
		for _, k := range keys {
			got, ok := actual[k]
			matched := ok && queryValueMatches(q.Values[k], got)
			if matched {
				fr.Score += ScoreQueryParam
			} else {
				fr.Matched = false
			}
			shown := "(missing)"
			if ok {
				shown = fmt.Sprint(got)
			}
			details = append(details, HeaderDetail{Key: k, Expected: fmt.Sprint(q.Values[k]), Actual: shown, Matched: matched})
		}
		fr.Details = details
	}
	return fr
}

// queryValueMatches compares a declared query value with a parsed one.
// Regex leaves test the string, maps and slices compare structurally and
// scalars compare as strings.
func queryValueMatches(expected, actual any) bool {
	switch e := expected.(type) {
	case *regexp.Regexp:
		s, ok := actual.(string)
		return ok && e.MatchString(s)
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !queryValueMatches(ev, av) {
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
			if !queryValueMatches(e[i], a[i]) {
				return false
			}
		}
		return true
	default:
		s, ok := actual.(string)
		return ok && s == fmt.Sprint(expected)
	}
}
