// Package failure defines the error kinds shared by every layer. Callers wrap
// them and test with errors.Is; the HTTP layer maps kinds to status codes.
package failure

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrPersistence     = errors.New("persistence failed")
	ErrGateway         = errors.New("payment gateway failed")
	ErrOrderPlacement  = errors.New("order placement failed")
)

// Error pairs a kind with a client-safe message and an optional cause.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Msg != "":
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Msg, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New returns an error of kind with msg.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap returns an error of kind with msg caused by cause.
func Wrap(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Validation returns an ErrValidation carrying msg.
func Validation(msg string) error {
	return New(ErrValidation, msg)
}

// Persistence wraps a store error as ErrPersistence unless it already carries
// a store kind (NotFound, Conflict, Persistence).
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrPersistence) {
		return err
	}
	return Wrap(ErrPersistence, op, err)
}

// Message returns the client-safe message of the outermost *Error in err's
// chain, or the empty string.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return ""
}
