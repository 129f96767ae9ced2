package core

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a ledger error.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindInsufficientBudget Kind = "insufficient_budget"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindTransport          Kind = "transport"
	KindInternal           Kind = "internal"
)

// Error carries a human-readable message and a Kind the caller can act on.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels usable with errors.Is to test for a kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInsufficientBudget = &Error{Kind: KindInsufficientBudget}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrTransport          = &Error{Kind: KindTransport}
)

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels (no message, no cause) against any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that an entity id does not resolve.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// Conflictf builds a ConflictError.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBudget reports a spend larger than what is left on a budget.
func InsufficientBudget(requested, remaining Money) error {
	return &Error{
		Kind:    KindInsufficientBudget,
		Message: fmt.Sprintf("amount %s exceeds remaining budget %s", requested, remaining),
	}
}

// Transport wraps a storage or network failure. Callers may retry.
func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Message: "storage unavailable: " + op, Err: err}
}

// KindOf returns the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller should offer a retry.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindConflict:
		return true
	}
	return false
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindTransport {
			return e.Message
		}
		return e.Error()
	}
	return "internal error"
}
