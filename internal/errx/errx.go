// Package errx provides application error kinds that map cleanly to HTTP status codes.
// Every error produced by the link service carries the operation that failed and one
// of these kinds, so the HTTP layer can classify it without inspecting driver errors.

package errx

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	Conflict
	Invalid
	Exhausted
	Storage
	Internal
)

type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Wrap re-labels err with op while keeping the kind already attached to it.
// Errors without a kind are treated as Storage failures.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == Unknown {
		kind = Storage
	}
	return E(op, kind, err)
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case Invalid:
		return "Invalid"
	case Exhausted:
		return "Exhausted"
	case Storage:
		return "Storage"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the outermost kind attached to err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Cause returns the first error in err's chain that is not an *Error. Its message
// is safe to show to clients for Invalid and Conflict errors.
func Cause(err error) error {
	for {
		e, ok := err.(*Error)
		if !ok || e.Err == nil {
			return err
		}
		err = e.Err
	}
}
