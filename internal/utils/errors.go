package utils

import (
	"errors"
	"fmt"
)

// ErrNotConfigured marks a collaborator that was never wired.
var ErrNotConfigured = errors.New("not configured")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NotConfigured reports a nil or unwired client for op.
func NotConfigured(op, what string) error {
	return &AppError{Op: op, Msg: what, Err: ErrNotConfigured}
}

// Op returns the operation of the outermost AppError in err's chain.
func Op(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Op
	}
	return ""
}
