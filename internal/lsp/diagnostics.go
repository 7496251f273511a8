package lsp

import (
	"fmt"
	"path/filepath"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"bfc/internal/errors"
)

// ConvertParseErrors transforms parser errors into LSP diagnostics for IDE display
func ConvertParseErrors(errs []errors.CompilerError) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	for _, e := range errs {
		length := e.Length
		if length == 0 {
			length = 1
		}
		start := toProtocolPosition(e.Position.Line, e.Position.Column)
		end := start
		end.Character += uint32(length)

		diagnostic := protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: ptrSeverity(severity(e.Level)),
			Code:     &protocol.IntegerOrString{Value: e.Code},
			Source:   ptrString("bfc"),
			Message:  e.Message,
		}
		if e.HelpText != "" {
			diagnostic.Message = fmt.Sprintf("%s\n%s", e.Message, e.HelpText)
		}

		for _, rel := range e.Related {
			pos := toProtocolPosition(rel.Position.Line, rel.Position.Column)
			diagnostic.RelatedInformation = append(diagnostic.RelatedInformation, protocol.DiagnosticRelatedInformation{
				Location: protocol.Location{
					URI:   pathToURI(rel.Position.Filename),
					Range: protocol.Range{Start: pos, End: protocol.Position{Line: pos.Line, Character: pos.Character + 1}},
				},
				Message: rel.Message,
			})
		}

		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

// toProtocolPosition converts 1-based positions to LSP's 0-based ones
func toProtocolPosition(line, column int) protocol.Position {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	return protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1)}
}

func pathToURI(path string) protocol.DocumentUri {
	return "file://" + filepath.ToSlash(path)
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
