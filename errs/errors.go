// Package errs defines the error taxonomy the coprocessor core raises.
//
// Every error belongs to exactly one Kind (Decode, Eval, Expr, Overflow,
// Truncated, Storage). The request handler that sits above this core is
// expected to inspect the Kind and a human-readable message only; no other
// structure is promised across the boundary.
package errs

import (
	"fmt"

	"github.com/pingcap/errors"
)

// Kind classifies why an error was raised. See spec §7.
type Kind int

const (
	// KindDecode means malformed wire bytes (codecs, Datum decoders).
	KindDecode Kind = iota
	// KindEval means an invalid evaluation context or unresolved construct.
	KindEval
	// KindExpr means an ill-formed expression tree (wrong arity, wrong child type).
	KindExpr
	// KindOverflow means a value left its representable range.
	KindOverflow
	// KindTruncated means precision was lost during a conversion.
	KindTruncated
	// KindStorage means the underlying snapshot/MVCC layer failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "Decode"
	case KindEval:
		return "Eval"
	case KindExpr:
		return "Expr"
	case KindOverflow:
		return "Overflow"
	case KindTruncated:
		return "Truncated"
	case KindStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced inside the core. It carries a
// Kind alongside a pingcap/errors-wrapped cause so callers retain a stack
// trace without needing to know about this package's internals.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Decodef builds a KindDecode error.
func Decodef(format string, args ...any) error { return newf(KindDecode, format, args...) }

// Evalf builds a KindEval error.
func Evalf(format string, args ...any) error { return newf(KindEval, format, args...) }

// Exprf builds a KindExpr error.
func Exprf(format string, args ...any) error { return newf(KindExpr, format, args...) }

// Overflowf builds a KindOverflow error.
func Overflowf(format string, args ...any) error { return newf(KindOverflow, format, args...) }

// Truncatedf builds a KindTruncated error.
func Truncatedf(format string, args ...any) error { return newf(KindTruncated, format, args...) }

// Storagef builds a KindStorage error.
func Storagef(format string, args ...any) error { return newf(KindStorage, format, args...) }

// Wrap annotates an existing error (typically from a collaborator such as
// the snapshot interface) with a Kind, preserving it as the cause.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: kind, cause: errors.Trace(err)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// KindOf returns the Kind of err, and false if err isn't one of ours.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
