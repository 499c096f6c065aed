package matching

import (
	"github.com/getmockd/intercept/pkg/mock"
)

// HeaderDetail describes the match result for a single header or query key.
type HeaderDetail struct {
	Key      string `json:"key"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Matched  bool   `json:"matched"`
}

func requiredHeaders(exp *mock.Expectation) []mock.HeaderMatcher {
	if exp.Scope == nil || len(exp.Scope.RequiredHeaders) == 0 {
		return exp.Headers
	}
	out := make([]mock.HeaderMatcher, 0, len(exp.Scope.RequiredHeaders)+len(exp.Headers))
	out = append(out, exp.Scope.RequiredHeaders...)
	return append(out, exp.Headers...)
}

func forbiddenHeaders(exp *mock.Expectation) []string {
	if exp.Scope == nil || len(exp.Scope.ForbiddenHeaders) == 0 {
		return exp.ForbiddenHeaders
	}
	out := make([]string, 0, len(exp.Scope.ForbiddenHeaders)+len(exp.ForbiddenHeaders))
	out = append(out, exp.Scope.ForbiddenHeaders...)
	return append(out, exp.ForbiddenHeaders...)
}

func hasRequiredHeaders(exp *mock.Expectation) bool { return len(requiredHeaders(exp)) > 0 }

func hasForbiddenHeaders(exp *mock.Expectation) bool { return len(forbiddenHeaders(exp)) > 0 }

// evalHeaders requires every header matcher to pass. A missing header fails
// even a predicate matcher.
func evalHeaders(exp *mock.Expectation, in *input) FieldResult {
	required := requiredHeaders(exp)
	fr := FieldResult{Field: "headers", Matched: true, MaxScore: len(required) * ScoreHeader}
	details := make([]HeaderDetail, 0, len(required))
	for _, h := range required {
		actual := "(missing)"
		matched := false
		if in.req.Headers.Has(h.Name) {
			actual = in.req.Headers.Get(h.Name)
			matched = h.Value.Match(actual)
		}
		if matched {
			fr.Score += ScoreHeader
		} else {
			fr.Matched = false
		}
		details = append(details, HeaderDetail{Key: h.Name, Expected: h.Value.String(), Actual: actual, Matched: matched})
	}
	fr.Details = details
	return fr
}

func evalForbidden(exp *mock.Expectation, in *input) FieldResult {
	names := forbiddenHeaders(exp)
	fr := FieldResult{Field: "forbiddenHeaders", Matched: true, MaxScore: ScoreForbidden, Expected: names}
	var present []string
	for _, n := range names {
		if in.req.Headers.Has(n) {
			present = append(present, n)
		}
	}
	if len(present) > 0 {
		fr.Matched = false
		fr.Actual = present
		return fr
	}
	fr.Score = ScoreForbidden
	return fr
}
