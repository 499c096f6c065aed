// Package transport plugs an engine into net/http.
//
// Transport is an http.RoundTripper that answers requests from the engine's
// expectations. Requests that match nothing either fail with the engine's
// *mockerr.NoMatchError, fail with *NetConnectError, or are passed to the
// base transport, depending on the scope's AllowUnmocked setting and the
// NetConnect policy.
//
//	eng := engine.New()
//	restore := transport.Install(eng, transport.WithNetConnect(transport.DenyAll()))
//	defer restore()
//
//	eng.Scope("https://api.example.com").Get("/ping").Reply(200, "pong")
//	resp, err := http.Get("https://api.example.com/ping")
package transport
