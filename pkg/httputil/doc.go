// Package httputil normalizes the header and query representations that flow
// through the interception engine.
//
// Headers are keyed by lowercase name. Raw header lists are the flat
// [name, value, name, value, ...] form a transport hands over; converting a
// raw list to a Header folds duplicate names according to FoldPolicy.
//
// Query values are parsed into nested maps so that "a[b]=1" and a declared
// {"a": {"b": "1"}} compare equal. EncodeQuery produces RFC 3986 output.
package httputil
