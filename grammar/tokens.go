package grammar

import (
	"fmt"

	"bfc/token"

	"github.com/alecthomas/participle/v2/lexer"
)

// Tokens lexes source into positioned tokens. Runs of commentary become a
// single IGNORED token so that editors can still highlight them.
func Tokens(filename, source string) ([]token.Token, error) {
	lex, err := TapeLexer.LexString(filename, source)
	if err != nil {
		return nil, fmt.Errorf("failed to start lexer: %w", err)
	}

	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("failed to lex %s: %w", filename, err)
	}

	opType := TapeLexer.Symbols()["Op"]

	tokens := make([]token.Token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}

		tokType := token.TokenType(token.IGNORED)
		if t.Type == opType {
			tokType = token.LookupOperator(t.Value)
		}

		tokens = append(tokens, token.Token{
			Type:    tokType,
			Literal: t.Value,
			Pos: token.Position{
				Filename: t.Pos.Filename,
				Offset:   t.Pos.Offset,
				Line:     t.Pos.Line,
				Column:   t.Pos.Column,
			},
		})
	}

	return tokens, nil
}
