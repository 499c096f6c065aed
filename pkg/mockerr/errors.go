// Package mockerr defines the error taxonomy shared by the interception
// engine, the expectation builder and the transport adapter.
//
// Every concrete error type matches a package sentinel through errors.Is, so
// callers can branch on the kind without type assertions:
//
//	if errors.Is(err, mockerr.ErrNoMatch) { ... }
package mockerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is.
var (
	// ErrNoMatch is matched by *NoMatchError.
	ErrNoMatch = errors.New("no match for request")

	// ErrConflict is matched by *ConflictError.
	ErrConflict = errors.New("conflicting definition")

	// ErrConfiguration is matched by *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSimulated is matched by *SimulatedRequestError.
	ErrSimulated = errors.New("simulated request error")
)

// NoMatchError is returned when no registered expectation accepts a request
// and the request is not allowed to reach the network.
type NoMatchError struct {
	Method string
	Origin string
	Path   string
	Body   string
	// Reasons holds near-miss explanations, closest candidate first.
	Reasons []string
}

func (e *NoMatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no match for request %s %s%s", e.Method, e.Origin, e.Path)
	if e.Body != "" {
		fmt.Fprintf(&b, " %s", e.Body)
	}
	if len(e.Reasons) > 0 {
		b.WriteString(" (closest: ")
		b.WriteString(e.Reasons[0])
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target is ErrNoMatch.
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// ConflictError reports two definitions that cannot coexist, such as header
// names colliding after lowercasing or a query matcher set twice.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "conflict: " + e.Message
	}
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ConfigurationError reports an expectation or scope that cannot be played back.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// SimulatedRequestError is delivered in place of a response when an
// expectation was registered with ReplyWithError.
type SimulatedRequestError struct {
	// Value is the caller-supplied error payload. It is either an error, a
	// string, or an arbitrary structured value.
	Value any
}

func (e *SimulatedRequestError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Unwrap returns the configured error when the value is one.
func (e *SimulatedRequestError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is reports whether target is ErrSimulated.
func (e *SimulatedRequestError) Is(target error) bool {
	return target == ErrSimulated
}

// Conflict returns a *ConflictError.
func Conflict(field, format string, args ...any) error {
	return &ConflictError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Configuration returns a *ConfigurationError.
func Configuration(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
