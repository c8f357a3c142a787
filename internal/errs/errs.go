// Package errs defines the small closed set of error kinds shared by the
// wire codec, transport, and dispatcher.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the codec and server distinguish them:
// some are fatal to a connection, some mean "drop this datagram and
// continue", some are programmer errors.
type Kind int

const (
	// Truncated: input shorter than its declared or minimum length.
	Truncated Kind = iota
	// Exhausted: an output buffer was too small for what had to be written.
	Exhausted
	// NotImplemented: a well-formed field we deliberately do not serve
	// (ErrorIndication, unknown operation types, IPv6 NBMA, a request kind
	// with no registered handler).
	NotImplemented
	// Invalid: a semantically malformed field, or a request the router
	// could not route.
	Invalid
	// Io: a socket or subprocess failure.
	Io
)

func (k Kind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case Exhausted:
		return "exhausted"
	case NotImplemented:
		return "not implemented"
	case Invalid:
		return "invalid"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a Kind paired with context. errors.Is compares by Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is implements the errors.Is contract so callers can write
// errors.Is(err, errs.New(errs.Truncated, "")) against a target built with New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind carrying msg as its description.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an *Error of the given kind with a formatted description.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is* helpers give callers a terse way to probe a target Kind without
// constructing a throwaway sentinel each time.
func IsTruncated(err error) bool      { return hasKind(err, Truncated) }
func IsExhausted(err error) bool      { return hasKind(err, Exhausted) }
func IsNotImplemented(err error) bool { return hasKind(err, NotImplemented) }
func IsInvalid(err error) bool        { return hasKind(err, Invalid) }
func IsIo(err error) bool             { return hasKind(err, Io) }

func hasKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
