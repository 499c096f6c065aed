package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getmockd/intercept/pkg/mock"
)

// NearMiss is an expectation that partially matched a request.
type NearMiss struct {
	ExpectationID    string        `json:"expectationId"`
	Expectation      string        `json:"expectation"`
	Score            int           `json:"score"`
	MaxPossibleScore int           `json:"maxPossibleScore"`
	MatchPercentage  int           `json:"matchPercentage"`
	Fields           []FieldResult `json:"fields"`
	Reason           string        `json:"reason"`
}

// Breakdown evaluates every applicable stage of exp against req without
// short-circuiting.
func Breakdown(exp *mock.Expectation, req *mock.Request) *NearMiss {
	in := newInput(exp, req)
	result := &NearMiss{ExpectationID: exp.ID, Expectation: exp.String()}
	for _, st := range stages {
		if !st.applies(exp) {
			continue
		}
		fr := st.eval(exp, in)
		result.Fields = append(result.Fields, fr)
		result.Score += fr.Score
		result.MaxPossibleScore += fr.MaxScore
	}
	if result.MaxPossibleScore > 0 {
		result.MatchPercentage = (result.Score * 100) / result.MaxPossibleScore
	}
	result.Reason = GenerateReason(result.Fields)
	return result
}

// CollectNearMisses returns the topN expectations closest to matching req,
// best first. Expectations that matched nothing are left out.
func CollectNearMisses(exps []*mock.Expectation, req *mock.Request, topN int) []NearMiss {
	if topN <= 0 {
		topN = 3
	}

	var candidates []NearMiss
	for _, exp := range exps {
		if exp == nil {
			continue
		}
		nm := Breakdown(exp, req)
		if nm.Score == 0 {
			continue
		}
		candidates = append(candidates, *nm)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].MatchPercentage > candidates[j].MatchPercentage
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// Reasons renders near misses as "expectation: reason" lines.
func Reasons(misses []NearMiss) []string {
	out := make([]string, len(misses))
	for i, nm := range misses {
		out[i] = nm.Expectation + ": " + nm.Reason
	}
	return out
}

// GenerateReason explains why a partially matching expectation failed.
func GenerateReason(fields []FieldResult) string {
	if len(fields) == 0 {
		return "no fields to compare"
	}

	var matched []string
	var firstMismatch *FieldResult
	for i := range fields {
		if fields[i].Matched {
			matched = append(matched, fields[i].Field)
		} else if firstMismatch == nil {
			firstMismatch = &fields[i]
		}
	}

	if firstMismatch == nil {
		return "all specified fields matched"
	}
	if len(matched) == 0 {
		return formatMismatch(firstMismatch)
	}
	return joinFields(matched) + " matched, but " + formatMismatch(firstMismatch)
}

func formatMismatch(f *FieldResult) string {
	switch f.Field {
	case "method":
		return fmt.Sprintf("method expected %q, got %q", f.Expected, f.Actual)
	case "origin":
		return fmt.Sprintf("origin expected %q, got %q", f.Expected, f.Actual)
	case "path":
		return fmt.Sprintf("path expected %v, got %q", f.Expected, f.Actual)
	case "headers":
		if details, ok := f.Details.([]HeaderDetail); ok {
			for _, d := range details {
				if !d.Matched {
					return fmt.Sprintf("header %s expected %s, got %q", d.Key, d.Expected, d.Actual)
				}
			}
		}
		return "header mismatch"
	case "forbiddenHeaders":
		return fmt.Sprintf("forbidden header present: %v", f.Actual)
	case "conditional":
		return "scope condition not met"
	case "query":
		if details, ok := f.Details.([]HeaderDetail); ok {
			for _, d := range details {
				if !d.Matched {
					return fmt.Sprintf("query param %s expected %s, got %s", d.Key, d.Expected, d.Actual)
				}
			}
			return fmt.Sprintf("query expected keys %v, got %v", f.Expected, f.Actual)
		}
		return "query mismatch"
	case "body":
		return fmt.Sprintf("body expected %v", f.Expected)
	default:
		return f.Field + " did not match"
	}
}

// joinFields joins field names with commas and "and".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}
