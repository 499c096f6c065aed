// Package engine is the interception core: it holds registered expectations,
// decides which one answers an outgoing request and plays the reply back.
//
// # Architecture
//
//	  Scope/Interceptor (pkg/mock)
//	           │ Register
//	           ▼
//	  ┌──────────────────────────────┐
//	  │ Engine                       │
//	  │   registry (internal/storage)│◄── Pending / IsDone / ClearAll
//	  │   matcher (internal/matching)│
//	  └──────────────────────────────┘
//	           │ FindAndConsume          ──► requestlog (no-match, replied)
//	           ▼
//	        *Match ──Playback──► *Response (status, headers, BodyStream)
//
// # Basic Usage
//
//	eng := engine.New(engine.WithLogger(logger))
//	scope := eng.Scope("https://api.example.com")
//	if _, err := scope.Get("/users/1").Reply(200, map[string]any{"id": 1}); err != nil {
//	    return err
//	}
//
//	req, _ := mock.NewRequest("GET", "https://api.example.com/users/1", nil, "")
//	m, err := eng.FindAndConsume(ctx, req)
//	if err != nil {
//	    return err // *mockerr.NoMatchError with near-miss reasons
//	}
//	resp, err := eng.Playback(ctx, m)
//
// Expectations are tried in registration order and the first one that
// accepts the request wins. Selecting an expectation and decrementing its use
// counter happen under the registry lock, so concurrent requests never both
// consume the last use.
package engine
