package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for programs
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new program printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// dump returns the string representation of a program
func dump(program *Program) string {
	p := NewPrinter()
	p.printProgram(program)
	return p.output.String()
}

// PrintNodes returns the string representation of a bare node sequence
func PrintNodes(nodes []Node) string {
	return dump(&Program{Nodes: nodes})
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printProgram(program *Program) {
	if program.Name != "" {
		p.writeLine("PROGRAM %s (%d nodes)", program.Name, len(program.Nodes))
	}

	for _, n := range program.Nodes {
		switch n.(type) {
		case EndLoop:
			p.indent--
			p.writeLine("%s", n)
		case BeginLoop:
			p.writeLine("%s", n)
			p.indent++
		default:
			p.writeLine("%s", n)
		}
	}
}
