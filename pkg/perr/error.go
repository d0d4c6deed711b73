package perr

import (
	"fmt"
	"time"
)

// Error is a structured error carrying a closed Kind plus the
// operational context the teacher's ObjectFSError attaches (component,
// operation, path, cause, timestamp). Unlike the teacher's open-ended
// ErrorCode, Kind cannot grow at call sites.
type Error struct {
	Kind      Kind
	Component string
	Op        string
	Path      string
	Cause     error
	Timestamp time.Time
}

// New creates an *Error with the given kind and operation, stamped with
// the current time.
func New(kind Kind, component, op string) *Error {
	return &Error{Kind: kind, Component: component, Op: op, Timestamp: time.Now()}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithCause returns a copy of e with Cause set.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.Path != "":
		return fmt.Sprintf("[%s] %s %s: %s", e.Component, e.Op, e.Path, e.Kind)
	case e.Component != "":
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Unwrap returns the underlying cause, for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Is reports whether err is a *perr.Error carrying the given Kind.
func Is(err error, kind Kind) bool {
	pe, ok := err.(*Error)
	if !ok {
		return false
	}
	return pe.Kind == kind
}

// KindOf extracts the Kind from err, returning Other for plain errors and
// None for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	if pe, ok := err.(*Error); ok {
		return pe.Kind
	}
	return Other
}
