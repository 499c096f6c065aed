// Package cli implements interceptctl, a command-line tool for checking
// expectation definition files offline.
//
//	interceptctl validate mocks/**/*.yaml
//	interceptctl explain mocks/users.yaml GET https://api.example.com/users/1 -H "Accept: application/json"
package cli
