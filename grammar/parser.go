package grammar

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

var structuralParser = participle.MustBuild[Program](
	participle.Lexer(TapeLexer),
)

// ParseString builds the structural view of source. Unbalanced brackets
// are reported as a participle.Error carrying the offending position.
func ParseString(filename, source string) (*Program, error) {
	return structuralParser.ParseString(filename, source)
}

// ParseFile parses the file at path and also returns its text. Syntax
// errors are printed to stderr before they are returned.
func ParseFile(path string) (*Program, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	source := string(data)

	program, err := ParseString(path, source)
	if err != nil {
		ReportParseError(os.Stderr, source, err)
		return nil, source, err
	}
	return program, source, nil
}

// ReportParseError prints a friendly caret-style parse error message.
func ReportParseError(w io.Writer, src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		fmt.Fprintln(w, color.RedString("Unexpected error: %s", err))
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		fmt.Fprintln(w, color.RedString("Syntax error at unknown location: %s", err))
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	fmt.Fprintln(w, color.RedString("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column))
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, color.HiRedString(caret))
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}
