package matching

import (
	"encoding/json"
	"reflect"

	"github.com/getmockd/intercept/pkg/mock"
)

// JSONPathResult is the outcome of evaluating JSONPath conditions.
type JSONPathResult struct {
	Matched bool
	// Score is ScoreJSONPathCondition per satisfied condition.
	Score int
	// Values holds the value each satisfied condition selected, by path.
	Values map[string]any
}

// MatchJSONPath evaluates every condition against a JSON body. All must hold
// for Matched; Score counts the ones that did, for near-miss ranking.
func MatchJSONPath(conditions []mock.JSONPathCondition, body []byte) JSONPathResult {
	if len(conditions) == 0 {
		return JSONPathResult{Matched: true}
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return JSONPathResult{}
	}

	res := JSONPathResult{Matched: true, Values: make(map[string]any)}
	for _, c := range conditions {
		ok, value := matchSingleJSONPath(c, data)
		if !ok {
			res.Matched = false
			continue
		}
		res.Score += ScoreJSONPathCondition
		if value != nil {
			res.Values[c.Path] = value
		}
	}
	return res
}

func matchSingleJSONPath(c mock.JSONPathCondition, data any) (bool, any) {
	results := c.Expr.Get(data)

	if exists, isCheck := existenceCheck(c.Expected); isCheck {
		if len(results) == 0 {
			return !exists, nil
		}
		if exists {
			return true, results[0]
		}
		return false, nil
	}

	// Wildcard paths select several values; any one may satisfy the condition.
	for _, r := range results {
		if valuesEqual(r, c.Expected) {
			return true, r
		}
	}
	return false, nil
}

// existenceCheck recognizes {"exists": bool}.
func existenceCheck(expected any) (exists, ok bool) {
	m, isMap := expected.(map[string]any)
	if !isMap || len(m) != 1 {
		return false, false
	}
	v, has := m["exists"]
	if !has {
		return false, false
	}
	b, isBool := v.(bool)
	return isBool && b, true
}

// valuesEqual compares a selected JSON value with an expected one. Numbers
// compare numerically regardless of Go type.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if an, ok := toFloat64(actual); ok {
		en, ok := toFloat64(expected)
		return ok && an == en
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
