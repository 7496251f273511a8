package parser

import (
	"fmt"
	"os"

	"bfc/internal/errors"
	"bfc/internal/ir"
	"bfc/token"
)

// LoopSpan records where a loop opens and closes in the source
type LoopSpan struct {
	ID    uint32
	Open  token.Position
	Close token.Position
}

// Parser turns a token stream into nodes, matching loop brackets with a stack
type Parser struct {
	path   string
	tokens []token.Token
	nodes  []ir.Node
	loops  []LoopSpan
	errors []errors.CompilerError

	// indexes into loops for the brackets still open
	open       []int
	nextLoopID uint32
	lastClosed *token.Position
}

// NewParser creates a parser over tokens from path
func NewParser(path string, tokens []token.Token) *Parser {
	return &Parser{
		path:   path,
		tokens: tokens,
	}
}

// Parse consumes every token. Each '[' gets the next loop id in order of
// appearance; each ']' takes the id of the innermost open loop.
func (p *Parser) Parse() []ir.Node {
	for _, tok := range p.tokens {
		p.parseToken(tok)
	}

	for _, idx := range p.open {
		p.errors = append(p.errors, errors.UnclosedLoop(p.loops[idx].Open))
	}
	p.open = nil

	if len(p.errors) > 0 {
		return nil
	}
	return p.nodes
}

func (p *Parser) parseToken(tok token.Token) {
	switch tok.Type {
	case token.PLUS:
		p.emit(ir.Add{Delta: 1})
	case token.MINUS:
		p.emit(ir.Add{Delta: 255})
	case token.LT:
		p.emit(ir.ShiftLeft{N: 1})
	case token.GT:
		p.emit(ir.ShiftRight{N: 1})
	case token.DOT:
		p.emit(ir.Print{})
	case token.COMMA:
		p.emit(ir.Read{})
	case token.LBRACKET:
		id := p.nextLoopID
		p.nextLoopID++
		p.open = append(p.open, len(p.loops))
		p.loops = append(p.loops, LoopSpan{ID: id, Open: tok.Pos})
		p.emit(ir.BeginLoop{ID: id})
	case token.RBRACKET:
		if len(p.open) == 0 {
			p.errors = append(p.errors, errors.UnmatchedLoopEnd(tok.Pos, p.lastClosed))
			return
		}
		idx := p.open[len(p.open)-1]
		p.open = p.open[:len(p.open)-1]
		p.loops[idx].Close = tok.Pos
		closed := tok.Pos
		p.lastClosed = &closed
		p.emit(ir.EndLoop{ID: p.loops[idx].ID})
	case token.IGNORED:
		// commentary
	}
}

func (p *Parser) emit(n ir.Node) {
	p.nodes = append(p.nodes, n)
}

// Errors returns the diagnostics collected while parsing
func (p *Parser) Errors() []errors.CompilerError {
	return p.errors
}

// Loops returns the span of every loop, indexed by loop id
func (p *Parser) Loops() []LoopSpan {
	return p.loops
}

// ParseFile reads and parses the file at path
func ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseSource(path, string(source)), nil
}
