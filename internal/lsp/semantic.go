package lsp

import (
	"bfc/internal/parser"
	"bfc/token"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into SemanticTokenTypes
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

const (
	tokenOperator = iota
	tokenVariable
	tokenFunction
	tokenKeyword
)

const modifierDeclaration = 1 << 0

func tokenClass(t token.TokenType) (int, bool) {
	switch t {
	case token.PLUS, token.MINUS:
		return tokenOperator, true
	case token.LT, token.GT:
		return tokenVariable, true
	case token.DOT, token.COMMA:
		return tokenFunction, true
	case token.LBRACKET, token.RBRACKET:
		return tokenKeyword, true
	default:
		return 0, false
	}
}

// collectSemanticTokens classifies the operators of a document. Runs of the
// same operator on one line form a single token; brackets are always single
// and an opening bracket is marked as a declaration.
func collectSemanticTokens(result *parser.ParseResult) []SemanticToken {
	var tokens []SemanticToken
	if result == nil {
		return tokens
	}

	var prev token.TokenType
	for _, tok := range result.Tokens {
		class, ok := tokenClass(tok.Type)
		if !ok {
			prev = ""
			continue
		}

		line := uint32(tok.Pos.Line - 1)
		start := uint32(tok.Pos.Column - 1)

		if n := len(tokens); n > 0 && class != tokenKeyword && tok.Type == prev {
			last := &tokens[n-1]
			if last.Line == line && last.StartChar+last.Length == start {
				last.Length++
				continue
			}
		}

		st := SemanticToken{Line: line, StartChar: start, Length: 1, TokenType: class}
		if tok.Type == token.LBRACKET {
			st.TokenModifiers = modifierDeclaration
		}
		tokens = append(tokens, st)
		prev = tok.Type
	}

	return tokens
}

// encodeSemanticTokens packs tokens into the LSP wire format using
// delta-line, delta-start compression
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	data := []uint32{}
	var prevLine, prevStart uint32

	for _, t := range tokens {
		deltaLine := t.Line - prevLine
		deltaStart := t.StartChar
		if deltaLine == 0 {
			deltaStart = t.StartChar - prevStart
		}

		data = append(data, deltaLine, deltaStart, t.Length, uint32(t.TokenType), uint32(t.TokenModifiers))

		prevLine = t.Line
		prevStart = t.StartChar
	}

	return data
}
