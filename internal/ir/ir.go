package ir

// This file provides the main entry point for the instruction stream.
// The parser produces a Program, the optimization pipeline shrinks it, and the
// lowering engine turns it into a control-flow graph.

// BuildProgram wraps parsed nodes into a Program and runs the default
// optimization pipeline over it
func BuildProgram(name string, nodes []Node) *Program {
	program := &Program{
		Name:  name,
		Nodes: nodes,
	}

	pipeline := NewOptimizationPipeline()
	pipeline.Run(program)

	return program
}

// PrintProgram returns a pretty-printed representation of the program
func PrintProgram(program *Program) string {
	return dump(program)
}
