package entity

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeModelError   ErrorCode = "MODEL_ERROR"
)

var (
	// Request errors
	ErrInvalidPreset   = errors.New("invalid preset")
	ErrInvalidScale    = errors.New("invalid scale")
	ErrInvalidStrength = errors.New("invalid strength")
	ErrMissingImage    = errors.New("missing image data")
	ErrImageTooLarge   = errors.New("image too large")

	// Job errors
	ErrJobNotFound = errors.New("job not found")
	ErrJobNotReady = errors.New("job result not ready")
)

// Error is the only failure shape that leaves the pipeline.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// CodeOf classifies any error. Deadline and cancellation map to TIMEOUT,
// anything unrecognised to MODEL_ERROR.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}
	return CodeModelError
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
