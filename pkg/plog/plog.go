// Package plog provides the structured-logging shim every subsystem
// constructor accepts: a thin wrapper around a *logrus.Entry, matching
// the optional-injection shape the teacher uses for its component
// constructors (never a global mutable logger).
package plog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a *logrus.Entry pre-bound with component, defaulting to a
// discard writer when base is nil so callers never need a nil check.
func New(base *logrus.Logger, component string) *logrus.Entry {
	if base == nil {
		base = logrus.New()
		base.SetOutput(io.Discard)
	}
	return base.WithField("component", component)
}

// Discard returns an entry that drops everything, for constructors that
// receive no logger.
func Discard() *logrus.Entry {
	return New(nil, "")
}
