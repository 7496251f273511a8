package errors

import "fmt"

// InternalError marks a broken compiler invariant. It never describes a
// property of user input: a well-formed program that produces one has hit a
// bug in the compiler itself.
type InternalError struct {
	Code    string
	Stage   string
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error[%s] in %s: %s: %v", e.Code, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error[%s] in %s: %s", e.Code, e.Stage, e.Message)
}

func (e *InternalError) Unwrap() error { return e.Cause }

// Internal creates an InternalError for the given stage
func Internal(code, stage, format string, args ...interface{}) *InternalError {
	return &InternalError{
		Code:    code,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a cause to the error and returns it
func (e *InternalError) Wrap(cause error) *InternalError {
	e.Cause = cause
	return e
}
