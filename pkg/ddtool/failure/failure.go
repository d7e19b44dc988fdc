// SPDX-License-Identifier: AGPL-3.0-only

// Package failure classifies the errors ddtool surfaces to its users.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure. It's printed as the prefix of the
// message shown to the user.
type Kind string

const (
	ConfigNotFound     Kind = "ConfigNotFound"
	ConfigUnreadable   Kind = "ConfigUnreadable"
	MalformedSyntax    Kind = "MalformedSyntax"
	SchemaViolation    Kind = "SchemaViolation"
	MissingCredentials Kind = "MissingCredentials"
	RemoteServiceError Kind = "RemoteServiceError"

	// Unknown is reported for errors which were never classified.
	Unknown Kind = "Error"
)

// Error is an error tagged with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

// New returns an error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, &failure.Error{Kind: failure.SchemaViolation}).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k interface{ FailureKind() Kind }
	if errors.As(err, &k) {
		return k.FailureKind()
	}
	return Unknown
}

// FailureKind implements the interface KindOf looks for.
func (e *Error) FailureKind() Kind {
	return e.Kind
}

// Format renders err as "<Kind>: <message>".
func Format(err error) string {
	return fmt.Sprintf("%s: %s", KindOf(err), err.Error())
}
