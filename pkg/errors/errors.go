// Package errors provides the error types shared across the SkillPort
// SDK.
package errors

import (
	"errors"
	"fmt"
)

// Error is the base error type for all SDK errors.
type Error struct {
	// Kind indicates the category of error.
	Kind Kind

	// Op is the operation being performed (e.g. "scan.ScanDirectory").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error.
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota

	// KindInvalidInput marks caller mistakes (bad paths, bad arguments).
	KindInvalidInput

	// KindNotFound marks missing scan targets: a directory-scan path
	// that does not exist or is not a directory, or a skill absent from
	// the store.
	KindNotFound

	// KindUnreadable marks content that could not be read or decoded as
	// text. Inside a directory scan this is absorbed per file, never
	// surfaced as a failure of the whole scan.
	KindUnreadable

	// KindConflict marks state conflicts, e.g. installing a skill that
	// is already installed.
	KindConflict

	// KindBlocked marks an installation refused by the security scan.
	KindBlocked

	// KindInternal marks defects in the SDK itself.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUnreadable:
		return "unreadable"
	case KindConflict:
		return "conflict"
	case KindBlocked:
		return "blocked"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op first, then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with an operation name.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return GetKind(err) == KindNotFound
}

// IsUnreadable checks if the error is an unreadable-content error.
func IsUnreadable(err error) bool {
	return GetKind(err) == KindUnreadable
}

// IsBlocked checks if the error marks a scan-blocked installation.
func IsBlocked(err error) bool {
	return GetKind(err) == KindBlocked
}

// IsConflict checks if the error is a state-conflict error.
func IsConflict(err error) bool {
	return GetKind(err) == KindConflict
}
