package matching

import "github.com/getmockd/intercept/pkg/mock"

// Scores weight each stage in a Breakdown. They only rank near misses; Match
// itself is pass/fail.
const (
	ScoreHeader      = 10
	ScoreForbidden   = 5
	ScoreConditional = 5
	ScoreOrigin      = 10
	ScoreMethod      = 10
	ScoreQueryParam  = 5
	// ScoreQueryAny is used for "any" and predicate query matchers.
	ScoreQueryAny = 5
)

// Path scores by matcher kind.
const (
	ScorePathExact = 15
	ScorePathRegex = 14
	ScorePathFunc  = 12
	ScorePathGlob  = 10
)

// Body scores by matcher kind.
const (
	ScoreBodyLiteral       = 25
	ScoreBodyRegex         = 22
	ScoreBodyFunc          = 20
	ScoreBodySchema        = 20
	ScoreJSONPathCondition = 15
)

func pathScore(kind mock.MatcherKind) int {
	switch kind {
	case mock.KindExact:
		return ScorePathExact
	case mock.KindRegex:
		return ScorePathRegex
	case mock.KindGlob:
		return ScorePathGlob
	default:
		return ScorePathFunc
	}
}

func bodyScore(b mock.BodyMatcher) int {
	switch b.Kind {
	case mock.BodyLiteral:
		return ScoreBodyLiteral
	case mock.BodyRegex:
		return ScoreBodyRegex
	case mock.BodyJSONPath:
		return ScoreJSONPathCondition * len(b.Conditions)
	case mock.BodySchema:
		return ScoreBodySchema
	default:
		return ScoreBodyFunc
	}
}
