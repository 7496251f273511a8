// Package token SPDX-License-Identifier: Apache-2.0
package token

import "fmt"

type TokenType string

// Position is a 1-based line/column location in a source file.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

const (
	// Cell operators
	PLUS  = "+"
	MINUS = "-"

	// Pointer movement
	LT = "<"
	GT = ">"

	// I/O
	DOT   = "."
	COMMA = ","

	// Loops
	LBRACKET = "["
	RBRACKET = "]"

	// Anything else is commentary
	IGNORED = "IGNORED"
)

var operators = map[string]TokenType{
	"+": PLUS,
	"-": MINUS,
	"<": LT,
	">": GT,
	".": DOT,
	",": COMMA,
	"[": LBRACKET,
	"]": RBRACKET,
}

// LookupOperator maps a single source character to its token type.
func LookupOperator(ch string) TokenType {
	if tok, ok := operators[ch]; ok {
		return tok
	}
	return IGNORED
}
