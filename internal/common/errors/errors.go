package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Dialogue input that can be re-prompted.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// Dialogue idle past its deadline.
	ErrCodeTimeout   ErrorCode = "TIMEOUT"
	ErrCodeCancelled ErrorCode = "CANCELLED"

	// Messaging collaborator failures (send/edit/fetch).
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// Snapshot and history storage failures.
	ErrCodePersistence ErrorCode = "PERSISTENCE_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a detail value to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewInputError marks a rejected dialogue reply; the step re-prompts.
func NewInputError(field, input string, err error) *AppError {
	return Wrap(err, ErrCodeInvalidInput, fmt.Sprintf("invalid %s", field)).
		WithDetail("field", field).
		WithDetail("input", input)
}

// NewTransportError wraps a messaging collaborator failure.
func NewTransportError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("transport operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewPersistenceError wraps a storage failure.
func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("persistence operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewNotFoundError reports a missing resource, keeping the sentinel cause.
func NewNotFoundError(resource, id string, cause error) *AppError {
	return Wrap(cause, ErrCodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// AsAppError extracts an AppError anywhere in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
