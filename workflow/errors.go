package workflow

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrTransient         = errors.New("dependency unavailable")
)

// Error carries a kind, the failing operation and an optional cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// Message is the caller-facing text of err without the operation prefix.
func Message(err error) string {
	var we *Error
	if errors.As(err, &we) {
		if we.Msg != "" {
			return we.Msg
		}
		return we.Kind.Error()
	}
	return err.Error()
}
