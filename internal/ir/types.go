package ir

import (
	"fmt"
)

// Node is one instruction of the tape program. The set of nodes is closed:
// only the types in this file implement it.
type Node interface {
	String() string
	node()
}

// Add adds Delta to the cell under the pointer, wrapping at 256
type Add struct {
	Delta uint8
}

// Read stores one input byte in the cell under the pointer
type Read struct{}

// Print writes the cell under the pointer to the output
type Print struct{}

// ShiftLeft moves the pointer N cells towards the start of the tape
type ShiftLeft struct {
	N uint64
}

// ShiftRight moves the pointer N cells towards the end of the tape
type ShiftRight struct {
	N uint64
}

// BeginLoop opens loop ID. Loop ids are assigned by the parser, are unique
// and nest properly with their EndLoop.
type BeginLoop struct {
	ID uint32
}

// EndLoop closes loop ID
type EndLoop struct {
	ID uint32
}

func (Add) node()        {}
func (Read) node()       {}
func (Print) node()      {}
func (ShiftLeft) node()  {}
func (ShiftRight) node() {}
func (BeginLoop) node()  {}
func (EndLoop) node()    {}

func (a Add) String() string        { return fmt.Sprintf("add %d", a.Delta) }
func (Read) String() string         { return "read" }
func (Print) String() string        { return "print" }
func (s ShiftLeft) String() string  { return fmt.Sprintf("shl %d", s.N) }
func (s ShiftRight) String() string { return fmt.Sprintf("shr %d", s.N) }
func (b BeginLoop) String() string  { return fmt.Sprintf("loop.begin %d", b.ID) }
func (e EndLoop) String() string    { return fmt.Sprintf("loop.end %d", e.ID) }

// Program is the compilation unit: the instruction stream of one source file
type Program struct {
	Name  string
	Nodes []Node
}

// LoopIDs returns the ids of every BeginLoop in program order
func (p *Program) LoopIDs() []uint32 {
	var ids []uint32
	for _, n := range p.Nodes {
		if begin, ok := n.(BeginLoop); ok {
			ids = append(ids, begin.ID)
		}
	}
	return ids
}
