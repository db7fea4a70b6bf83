// Package cxierr provides the typed error kinds shared across the
// store, index job, and query layers, wrapped with
// github.com/pkg/errors so a stack trace survives from the point of
// failure up through the project layer that eventually reports it.
package cxierr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an error without callers needing to string-match
// error text.
type Kind int

const (
	Unknown Kind = iota
	StoreOpenFailed
	ParseFailed
	CancelRequested
	SchemaMismatch
	PathResolveFailed
	InvalidLocation
	BatchWriteFailed
	WatchFailed
)

func (k Kind) String() string {
	switch k {
	case StoreOpenFailed:
		return "store open failed"
	case ParseFailed:
		return "parse failed"
	case CancelRequested:
		return "cancel requested"
	case SchemaMismatch:
		return "schema mismatch"
	case PathResolveFailed:
		return "path resolve failed"
	case InvalidLocation:
		return "invalid location"
	case BatchWriteFailed:
		return "batch write failed"
	case WatchFailed:
		return "watch failed"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the underlying wrapped error.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, cxierr.New(cxierr.ParseFailed, nil)) or more
// conveniently cxierr.Is(err, cxierr.ParseFailed).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New wraps err with a Kind, attaching a fresh stack trace to any
// non-nil err.
func New(kind Kind, err error) *Error {
	if err != nil {
		err = pkgerrors.WithStack(err)
	}
	return &Error{Kind: kind, err: err}
}

// Wrap wraps err with a Kind and a message, capturing a stack trace.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, err: pkgerrors.Wrap(err, msg)}
}

// Is reports whether err is, or wraps, a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
