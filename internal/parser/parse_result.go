package parser

import (
	"bfc/grammar"
	"bfc/internal/errors"
	"bfc/internal/ir"
	"bfc/token"
)

// ParseResult contains the full parsing result for one source file
type ParseResult struct {
	Path   string
	Source string
	Tokens []token.Token
	Nodes  []ir.Node
	Loops  []LoopSpan
	Errors []errors.CompilerError
}

// OK reports whether the source parsed without errors
func (pr *ParseResult) OK() bool {
	return len(pr.Errors) == 0
}

// Program wraps the parsed nodes as an unoptimized program
func (pr *ParseResult) Program() *ir.Program {
	return &ir.Program{Name: pr.Path, Nodes: pr.Nodes}
}

// ParseSource tokenizes and parses source. Nodes is nil whenever Errors is
// not empty.
func ParseSource(path string, source string) *ParseResult {
	result := &ParseResult{Path: path, Source: source}

	tokens, err := grammar.Tokens(path, source)
	if err != nil {
		result.Errors = append(result.Errors, errors.LexerFailure(err, token.Position{Filename: path, Line: 1, Column: 1}))
		return result
	}
	result.Tokens = tokens

	p := NewParser(path, tokens)
	result.Nodes = p.Parse()
	result.Loops = p.Loops()
	result.Errors = p.Errors()

	return result
}
