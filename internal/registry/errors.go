package registry

import (
	"errors"
	"fmt"
)

// Kind classifies why a registry lookup produced no usable record.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not raised by this package.
	KindUnknown Kind = iota
	// UpstreamUnavailable covers network failures, timeouts and non-200 replies.
	UpstreamUnavailable
	// DataMissing means the upstream answered but an expected field was absent.
	DataMissing
	// MalformedInput means the reply or the request could not be parsed.
	MalformedInput
)

func (k Kind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "upstream unavailable"
	case DataMissing:
		return "data missing"
	case MalformedInput:
		return "malformed input"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by registry clients.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// statusError records a non-200 reply.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
