// Package config loads engine settings and expectation definitions from YAML
// (or JSON) files.
//
// A definitions file lists scopes and their interceptors:
//
//	engine:
//	  idleTimeout: 2s
//	  netConnect:
//	    disabled: true
//	    allow: ["localhost"]
//	scopes:
//	  - origin: https://api.example.com
//	    reqheaders:
//	      authorization: Bearer ${API_TOKEN}
//	    interceptors:
//	      - method: GET
//	        path: /users/1
//	        times: 2
//	        reply:
//	          status: 200
//	          body: {id: 1, name: ann}
//
// ${VAR} and ${VAR:-default} references are expanded before parsing.
// Path and header matchers are either a plain string (exact match) or a
// mapping with one of exact, regex, glob or expr.
package config
