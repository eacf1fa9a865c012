// Package relerr defines the release pipeline failure taxonomy. Steps
// return these as values; nothing in the pipeline panics for an expected
// failure mode.
package relerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the failure classes the operator can act on.
type Kind int

const (
	// MissingRequirement: a required external tool is absent. Aborts
	// before any mutation.
	MissingRequirement Kind = iota + 1

	// CommandFailure: an invoked tool returned non-zero. The captured
	// output is surfaced verbatim.
	CommandFailure

	// ArtifactMissing: a tool reported success but its expected output
	// does not exist. Deliberately distinct from CommandFailure.
	ArtifactMissing

	// IOFailure: a filesystem read, write, or digest operation failed.
	IOFailure

	// UnsupportedPlatform: the host OS is outside {windows, macos, linux},
	// or a cross-platform build was requested. Fatal for packaging only.
	UnsupportedPlatform
)

func (k Kind) String() string {
	switch k {
	case MissingRequirement:
		return "missing requirement"
	case CommandFailure:
		return "command failure"
	case ArtifactMissing:
		return "artifact missing"
	case IOFailure:
		return "io failure"
	case UnsupportedPlatform:
		return "unsupported platform"
	default:
		return "unknown failure"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

// New builds a classified failure.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf extracts the failure kind from err, or 0 if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
