// Package errors provides structured error handling for blockstream
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeSchema represents mismatches between column layouts
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
)

// Code identifies a specific failure within an ErrorType.
type Code string

const (
	// CodeMissingColumn: a target column has no same-named source column.
	CodeMissingColumn Code = "missing_column"
	// CodeTypeMismatch: matched columns carry different value types.
	CodeTypeMismatch Code = "type_mismatch"
	// CodeNullNotAllowed: a null reached a column that cannot hold one.
	CodeNullNotAllowed Code = "null_not_allowed"
	// CodeMalformedBatch: a batch does not have the layout it was planned for.
	CodeMalformedBatch Code = "malformed_batch"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Code    Code
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := string(e.Type)
	if e.Code != "" {
		prefix += "/" + string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCode sets the specific failure code
func (e *Error) WithCode(code Code) *Error {
	e.Code = code
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack and code
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Code:    existingErr.Code,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// MissingColumn reports a target column absent from the source layout.
func MissingColumn(column string) *Error {
	return &Error{
		Type:    ErrorTypeSchema,
		Code:    CodeMissingColumn,
		Message: fmt.Sprintf("no column %q in source block", column),
		Details: map[string]interface{}{"column": column},
		Stack:   captureStack(2),
	}
}

// TypeMismatch reports same-named columns whose value types differ.
func TypeMismatch(column, source, target string) *Error {
	return &Error{
		Type:    ErrorTypeSchema,
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("column %q has type %s in source block but %s in target block", column, source, target),
		Details: map[string]interface{}{"column": column, "source_type": source, "target_type": target},
		Stack:   captureStack(2),
	}
}

// NullNotAllowed reports nulls found in a column whose target is not nullable.
func NullNotAllowed(column string, nulls int) *Error {
	return &Error{
		Type:    ErrorTypeData,
		Code:    CodeNullNotAllowed,
		Message: fmt.Sprintf("cannot insert NULL into non-nullable column %q", column),
		Details: map[string]interface{}{"column": column, "null_count": nulls},
		Stack:   captureStack(2),
	}
}

// MalformedBatch reports a batch whose layout disagrees with its descriptor.
func MalformedBatch(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeSchema,
		Code:    CodeMalformedBatch,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// IsRetryable returns true if the error is retryable
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsCode checks if the error carries the given code
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
