// Package matching decides whether a request satisfies an expectation.
//
// Match runs the stages in a fixed order and stops at the first failure:
//
//  1. required headers (scope, then expectation)
//  2. forbidden headers
//  3. the scope's conditional gate
//  4. origin, exact or through the scope's origin filter
//  5. method
//  6. query
//  7. path, with the query string stripped
//  8. body
//
// Stages an expectation does not constrain are skipped. Breakdown runs every
// applicable stage without stopping and scores the result; the engine uses it
// to explain a NoMatchError with the closest candidates. Score constants are
// defined in scores.go.
package matching
