// Package errors provides error wrapping that preserves the root cause while
// accumulating human readable context as an error is passed up the stack.
package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(msg)
	}
	return fmt.Errorf(msg, args...)
}

type contextError struct {
	context string
	cause   error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

func (err contextError) Unwrap() error {
	return err.cause
}

// WithContext annotates `err` with a description of what was being attempted
// when it occurred. It returns nil if `err` is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, cause: err}
}

// RootCause returns the innermost error that was wrapped with WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.cause
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// users, without the context chain.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the user facing message.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

type friendlyMessager interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be shown to users for
// `err`. If any error in the chain has a friendly message, it is used instead
// of the full context chain.
func GetPrintableMessage(err error) string {
	for curr := err; curr != nil; curr = goerrors.Unwrap(curr) {
		if friendly, ok := curr.(friendlyMessager); ok {
			return friendly.FriendlyMessage()
		}
	}
	return err.Error()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}
