package matching

import (
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// FieldResult describes whether a single stage matched the request.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// Verdict is the outcome of Match. Failed holds the stage that stopped
// evaluation; it is empty when Matched is true.
type Verdict struct {
	Matched bool
	// ViaFilter is set when the origin matched through the scope's origin
	// filter rather than textually.
	ViaFilter bool
	Failed    []FieldResult
	Reason    string
}

// stage evaluates one aspect of a request. applies reports whether the
// expectation constrains that aspect at all.
type stage struct {
	field   string
	applies func(exp *mock.Expectation) bool
	eval    func(exp *mock.Expectation, in *input) FieldResult
}

// stages is the fixed evaluation order.
var stages = []stage{
	{"headers", hasRequiredHeaders, evalHeaders},
	{"forbiddenHeaders", hasForbiddenHeaders, evalForbidden},
	{"conditional", hasConditional, evalConditional},
	{"origin", always, evalOrigin},
	{"method", hasMethod, evalMethod},
	{"query", hasQuery, evalQuery},
	{"path", hasPath, evalPath},
	{"body", hasBody, evalBody},
}

// Match evaluates exp against req, stopping at the first failing stage.
func Match(exp *mock.Expectation, req *mock.Request) Verdict {
	in := newInput(exp, req)
	v := Verdict{Matched: true}
	for _, st := range stages {
		if !st.applies(exp) {
			continue
		}
		fr := st.eval(exp, in)
		if st.field == "origin" && fr.Details == viaFilter {
			v.ViaFilter = true
		}
		if !fr.Matched {
			return Verdict{
				Failed: []FieldResult{fr},
				Reason: formatMismatch(&fr),
			}
		}
	}
	return v
}

func always(*mock.Expectation) bool { return true }

func hasMethod(exp *mock.Expectation) bool { return exp.Method != "" }

func hasPath(exp *mock.Expectation) bool { return !exp.Path.IsZero() }

func hasQuery(exp *mock.Expectation) bool { return exp.Query.IsSet() }

func hasBody(exp *mock.Expectation) bool { return exp.Body.IsSet() }

func hasConditional(exp *mock.Expectation) bool {
	return exp.Scope != nil && exp.Scope.Conditionally != nil
}

const viaFilter = "filter"

func evalOrigin(exp *mock.Expectation, in *input) FieldResult {
	fr := FieldResult{Field: "origin", MaxScore: ScoreOrigin, Expected: exp.Origin(), Actual: in.req.Origin}
	switch {
	case exp.Origin() == in.req.Origin:
		fr.Matched = true
	case exp.Scope != nil && exp.Scope.OriginFilter != nil && exp.Scope.OriginFilter(in.req.Origin):
		fr.Matched = true
		fr.Details = viaFilter
	}
	if fr.Matched {
		fr.Score = ScoreOrigin
	}
	return fr
}

func evalMethod(exp *mock.Expectation, in *input) FieldResult {
	fr := FieldResult{Field: "method", MaxScore: ScoreMethod, Expected: exp.Method, Actual: in.req.Method}
	if strings.EqualFold(exp.Method, in.req.Method) {
		fr.Matched = true
		fr.Score = ScoreMethod
	}
	return fr
}

func evalConditional(exp *mock.Expectation, _ *input) FieldResult {
	fr := FieldResult{Field: "conditional", MaxScore: ScoreConditional}
	if exp.Scope.Conditionally() {
		fr.Matched = true
		fr.Score = ScoreConditional
	}
	return fr
}

func evalPath(exp *mock.Expectation, in *input) FieldResult {
	maxScore := pathScore(exp.Path.Kind())
	actual := in.pathOnly()
	fr := FieldResult{Field: "path", MaxScore: maxScore, Expected: exp.Path.String(), Actual: actual}
	if exp.Path.Match(actual) {
		fr.Matched = true
		fr.Score = maxScore
	}
	return fr
}
