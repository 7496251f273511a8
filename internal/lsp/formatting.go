package lsp

import (
	"strings"
	"unicode/utf16"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"bfc/grammar"
)

// TextDocumentFormatting replaces the document with its canonical layout.
// Documents with unbalanced brackets are left alone; their diagnostics
// already say why.
func (h *TapeHandler) TextDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	result, err := h.getOrParse(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, nil
	}

	formatted, err := grammar.FormatSource(result.Path, result.Source)
	if err != nil {
		log.Debugf("not formatting %s: %s", result.Path, err)
		return nil, nil
	}
	if formatted == result.Source {
		return []protocol.TextEdit{}, nil
	}

	return []protocol.TextEdit{{
		Range:   wholeDocument(result.Source),
		NewText: formatted,
	}}, nil
}

// wholeDocument spans source from its first character to one past its last
func wholeDocument(source string) protocol.Range {
	lines := strings.Split(source, "\n")
	last := lines[len(lines)-1]
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End: protocol.Position{
			Line:      protocol.UInteger(len(lines) - 1),
			Character: protocol.UInteger(len(utf16.Encode([]rune(last)))),
		},
	}
}
