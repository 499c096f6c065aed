package matching

import (
	"encoding/json"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
	"github.com/getmockd/intercept/pkg/util"
)

const maxShownBody = 200

func evalBody(exp *mock.Expectation, in *input) FieldResult {
	b := exp.Body
	fr := FieldResult{Field: "body", MaxScore: bodyScore(b), Actual: util.TruncateBody(in.body, maxShownBody)}

	switch b.Kind {
	case mock.BodyRegex:
		fr.Expected = "/" + b.Source + "/"
		raw := in.body
		if !in.isMultipart() {
			raw = stripNewlines(raw)
		}
		fr.Matched = b.Regex.MatchString(raw)
	case mock.BodyLiteral:
		fr.Matched = matchLiteral(b.Literal, in)
		fr.Expected = b.Literal
		if s, ok := b.Literal.(string); ok {
			fr.Expected = util.TruncateBody(s, maxShownBody)
		}
	case mock.BodyCallback:
		fr.Expected = "<func>"
		fr.Matched = b.Fn(in.parsedBody())
	case mock.BodyJSONPath:
		res := MatchJSONPath(b.Conditions, []byte(in.body))
		fr.Expected = conditionPaths(b.Conditions)
		fr.Matched = res.Matched
		fr.Details = res.Values
		fr.Score = res.Score
	case mock.BodySchema:
		fr.Expected = "<schema>"
		var v any
		dec := json.NewDecoder(strings.NewReader(in.body))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil {
			err := b.Schema.Validate(v)
			fr.Matched = err == nil
			if err != nil {
				fr.Details = err.Error()
			}
		}
	case mock.BodyExpr:
		fr.Expected = b.Source
		fr.Matched = b.Eval(map[string]any{
			"body":    in.parsedBody(),
			"raw":     in.body,
			"headers": in.headerMap(),
		})
	}

	if fr.Matched && fr.Score == 0 {
		fr.Score = fr.MaxScore
	}
	return fr
}

// matchLiteral compares strings against the raw body and structured values
// against the parsed body.
func matchLiteral(expected any, in *input) bool {
	if s, ok := expected.(string); ok {
		if in.isMultipart() {
			return s == in.body
		}
		return stripNewlines(s) == stripNewlines(in.body)
	}
	if in.isURLEncoded() {
		expected = stringifyLeaves(expected)
	}
	return deepEqual(expected, in.parsedBody())
}

func conditionPaths(conds []mock.JSONPathCondition) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = c.Path
	}
	return out
}
