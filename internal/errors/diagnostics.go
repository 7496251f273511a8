package errors

import (
	"bfc/token"
)

// DiagnosticBuilder provides a fluent interface for creating diagnostics
type DiagnosticBuilder struct {
	err CompilerError
}

// NewDiagnostic creates a new error-level diagnostic builder
func NewDiagnostic(code, message string, pos token.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithRelated points at a second location that explains the error
func (b *DiagnosticBuilder) WithRelated(message string, pos token.Position) *DiagnosticBuilder {
	b.err.Related = append(b.err.Related, Related{Message: message, Position: pos})
	return b
}

// WithHelp adds help text to the error
func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compiler error
func (b *DiagnosticBuilder) Build() CompilerError {
	return b.err
}

// UnclosedLoop reports a '[' that reaches end of input still open
func UnclosedLoop(pos token.Position) CompilerError {
	return NewDiagnostic(ErrorUnclosedLoop, "loop is never closed", pos).
		WithHelp("add a matching ']' or remove this '['").
		Build()
}

// UnmatchedLoopEnd reports a ']' with no open loop. lastClosed is the most
// recent loop that was closed, if any, since that is usually where the extra
// bracket came from.
func UnmatchedLoopEnd(pos token.Position, lastClosed *token.Position) CompilerError {
	b := NewDiagnostic(ErrorUnmatchedLoopEnd, "end of loop with no beginning", pos)
	if lastClosed != nil {
		b.WithRelated("the previous loop was already closed here", *lastClosed)
	}
	return b.WithHelp("remove this ']' or add a matching '[' before it").Build()
}

// LexerFailure wraps a tokenizer failure as a diagnostic
func LexerFailure(err error, pos token.Position) CompilerError {
	return NewDiagnostic(ErrorLexer, err.Error(), pos).Build()
}
