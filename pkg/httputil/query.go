package httputil

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PercentEncode escapes s per RFC 3986, encoding spaces as %20 and the
// sub-delimiters !'()* that url.QueryEscape would otherwise keep readable in
// some encoders.
func PercentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseQuery decodes a raw query string. Repeated keys become []any,
// "a[b]=1" becomes {"a": {"b": "1"}} and "a[]=1" appends to a slice.
func ParseQuery(raw string) (map[string]any, error) {
	out := make(map[string]any)
	raw = strings.TrimPrefix(raw, "?")
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("decoding query key %q: %w", key, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("decoding query value for %q: %w", k, err)
		}
		setPath(out, splitKey(k), v)
	}
	return out, nil
}

// EncodeQuery renders q as an RFC 3986 query string with keys sorted.
// Nested maps are written with bracket keys; slices repeat the key.
func EncodeQuery(q map[string]any) string {
	var pairs []string
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := sortedKeys(t)
			for _, k := range keys {
				walk(prefix+"["+k+"]", t[k])
			}
		case []any:
			for _, item := range t {
				walk(prefix, item)
			}
		default:
			s, _ := stringify(t)
			pairs = append(pairs, PercentEncode(prefix)+"="+PercentEncode(s))
		}
	}
	for _, k := range sortedKeys(q) {
		walk(k, FormatQueryValue(q[k]))
	}
	return strings.Join(pairs, "&")
}

// FormatQuery normalizes a declared query object: bracket keys are expanded
// and every leaf is passed through FormatQueryValue.
func FormatQuery(q map[string]any) map[string]any {
	expanded, _ := ExpandKeys(q).(map[string]any)
	out := make(map[string]any, len(expanded))
	for k, v := range expanded {
		out[k] = FormatQueryValue(v)
	}
	return out
}

// FormatQueryValue converts a declared query value to the shape ParseQuery
// produces. Numbers and booleans become strings, nil becomes "", slices and
// maps are converted recursively, and *regexp.Regexp values are kept as-is.
func FormatQueryValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case *regexp.Regexp:
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = FormatQueryValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = FormatQueryValue(item)
		}
		return out
	}
	if s, ok := stringify(v); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = FormatQueryValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = FormatQueryValue(iter.Value().Interface())
			}
			return out
		}
	}
	return fmt.Sprintf("%v", v)
}

// ExpandKeys rewrites map keys written in bracket notation into nested maps,
// recursively. {"a[b]": 1} becomes {"a": {"b": 1}}.
func ExpandKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			setPath(out, splitKey(k), ExpandKeys(t[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ExpandKeys(item)
		}
		return out
	default:
		return v
	}
}

// splitKey turns "a[b][]" into ["a", "b", ""].
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	segs := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		segs = append(segs, rest[1:end])
		rest = rest[end+1:]
	}
	return segs
}

func setPath(m map[string]any, segs []string, v any) {
	key := segs[0]
	if len(segs) == 1 {
		existing, ok := m[key]
		if !ok {
			m[key] = v
			return
		}
		if list, isList := existing.([]any); isList {
			m[key] = append(list, v)
			return
		}
		m[key] = []any{existing, v}
		return
	}
	if segs[1] == "" && len(segs) == 2 {
		list, _ := m[key].([]any)
		m[key] = append(list, v)
		return
	}
	child, ok := m[key].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[key] = child
	}
	setPath(child, segs[1:], v)
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(t).Int(), 10), true
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(t).Uint(), 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
