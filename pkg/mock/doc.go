// Package mock holds the data model of the interception engine: scopes,
// expectations, matchers and reply descriptors, plus the fluent builder used
// to declare them.
//
// A Scope is created for an origin by the engine. Interceptors started from
// the scope describe one request shape each and are completed by a Reply
// call, which validates the expectation and hands it to the scope's
// Registrar:
//
//	scope := eng.Scope("https://api.example.com")
//	_, err := scope.Get("/users").
//		Query(map[string]any{"page": 1}).
//		MatchHeader("authorization", mock.Regex(`^Bearer `)).
//		Times(2).
//		Reply(200, []map[string]any{{"id": 1}})
//
// Builder errors follow a first-error-wins rule: the first invalid call is
// remembered and returned by Reply, later calls are ignored.
package mock
