package vm

import (
	"fmt"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Fatal errors - the offending thread is dropped
	ErrorEmptyContext ErrorType = "EMPTY_CONTEXT"

	// Non-fatal errors - execution continues with a safe default
	ErrorUnresolvedSymbol    ErrorType = "UNRESOLVED_SYMBOL"
	ErrorMissingObject       ErrorType = "MISSING_OBJECT"
	ErrorBadCoercion         ErrorType = "BAD_COERCION"
	ErrorStackUnderflow      ErrorType = "STACK_UNDERFLOW"
	ErrorBreakOutsideLoop    ErrorType = "BREAK_OUTSIDE_LOOP"
	ErrorResourceUnavailable ErrorType = "RESOURCE_UNAVAILABLE"
	ErrorInvalidOperation    ErrorType = "INVALID_OPERATION"
)

// RuntimeError represents a failure inside an instruction handler.
// The dispatcher logs it and carries on with the next instruction.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Script  string // Script name if available
	Line    int    // Line index if available, -1 otherwise
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Line >= 0 && e.Script != "" {
		return fmt.Sprintf("[%s] %s at %s:%d", e.Type, e.Message, e.Script, e.Line)
	}
	if e.Line >= 0 {
		return fmt.Sprintf("[%s] %s at line %d", e.Type, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// IsFatal returns true if the error must terminate the thread that raised it.
func (e *RuntimeError) IsFatal() bool {
	return e.Type == ErrorEmptyContext
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    -1,
	}
}

// NewRuntimeErrorAt creates a new RuntimeError with a script position.
func NewRuntimeErrorAt(errType ErrorType, message, script string, line int) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Script:  script,
		Line:    line,
	}
}

// Error helper functions for common error types

// NewUnresolvedSymbolError creates an unresolved symbol error.
func NewUnresolvedSymbolError(symbol string) *RuntimeError {
	return NewRuntimeError(ErrorUnresolvedSymbol, fmt.Sprintf("unresolved symbol: %s", symbol))
}

// NewMissingObjectError creates an error for a handle that names nothing.
func NewMissingObjectError(handle string) *RuntimeError {
	return NewRuntimeError(ErrorMissingObject, fmt.Sprintf("no object: %s", handle))
}

// NewResourceError creates an error for a file the provider could not serve.
func NewResourceError(name string, err error) *RuntimeError {
	return NewRuntimeError(ErrorResourceUnavailable, fmt.Sprintf("resource %s unavailable: %v", name, err))
}
