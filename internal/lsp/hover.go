package lsp

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"bfc/internal/parser"
	"bfc/token"
)

var operatorDocs = map[token.TokenType]string{
	token.PLUS:  "Increment the current cell (wraps 255 to 0)",
	token.MINUS: "Decrement the current cell (wraps 0 to 255)",
	token.GT:    "Move the pointer one cell to the right",
	token.LT:    "Move the pointer one cell to the left",
	token.DOT:   "Write the current cell to standard output",
	token.COMMA: "Read one byte from standard input into the current cell",
}

// hoverAt describes the operator at pos, or returns nil if there is none
func hoverAt(result *parser.ParseResult, pos protocol.Position) *protocol.Hover {
	if result == nil {
		return nil
	}

	for _, tok := range result.Tokens {
		if tok.Type == token.IGNORED {
			continue
		}
		if uint32(tok.Pos.Line-1) != pos.Line || uint32(tok.Pos.Column-1) != pos.Character {
			continue
		}

		text := operatorDocs[tok.Type]
		if tok.Type == token.LBRACKET || tok.Type == token.RBRACKET {
			text = loopDoc(result, tok)
		}

		start := toProtocolPosition(tok.Pos.Line, tok.Pos.Column)
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: fmt.Sprintf("`%s` %s", tok.Literal, text),
			},
			Range: &protocol.Range{
				Start: start,
				End:   protocol.Position{Line: start.Line, Character: start.Character + 1},
			},
		}
	}
	return nil
}

func loopDoc(result *parser.ParseResult, tok token.Token) string {
	for _, loop := range result.Loops {
		switch {
		case loop.Open.Offset == tok.Pos.Offset && loop.Close.Line > 0:
			return fmt.Sprintf("Loop %d: skip to the matching `]` at line %d, column %d while the current cell is zero",
				loop.ID, loop.Close.Line, loop.Close.Column)
		case loop.Open.Offset == tok.Pos.Offset:
			return fmt.Sprintf("Loop %d: never closed", loop.ID)
		case loop.Close.Line > 0 && loop.Close.Offset == tok.Pos.Offset:
			return fmt.Sprintf("Loop %d: repeat from the `[` at line %d, column %d while the current cell is nonzero",
				loop.ID, loop.Open.Line, loop.Open.Column)
		}
	}
	return "End of loop with no beginning"
}
