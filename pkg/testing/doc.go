// Package testing wires an interception engine into Go tests.
//
// New returns a Harness bound to t. Expectations are declared on scopes,
// requests go through the harness client, and any expectation still
// pending when the test ends fails it:
//
//	func TestFetchUser(t *testing.T) {
//	    h := intercepttest.New(t)
//	    h.Scope("https://api.example.com").
//	        Get("/users/1").
//	        Reply(200, map[string]any{"id": 1})
//
//	    user, err := client.FetchUser(h.Client(), 1)
//	    // ...
//	    h.AssertCalledTimes(t, "GET", "https://api.example.com/users/1", 1)
//	}
//
// Real network access is disabled unless WithNetConnect says otherwise.
package testing
