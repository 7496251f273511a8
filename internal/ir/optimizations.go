package ir

// This file contains the optimization passes over the instruction stream.
// Passes are applied after parsing and before lowering.

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("bfc.ir")

// OptimizationPass represents a single optimization transformation
type OptimizationPass interface {
	Name() string
	Apply(program *Program) bool // Returns true if changes were made
	Description() string
}

// OptimizationPipeline manages the sequence of optimization passes
type OptimizationPipeline struct {
	passes []OptimizationPass
}

// NewOptimizationPipeline creates a new optimization pipeline with default passes
func NewOptimizationPipeline() *OptimizationPipeline {
	pipeline := &OptimizationPipeline{}
	pipeline.AddPass(&PeepholeMerge{})
	return pipeline
}

// AddPass adds an optimization pass to the pipeline
func (p *OptimizationPipeline) AddPass(pass OptimizationPass) {
	p.passes = append(p.passes, pass)
}

// Run executes all optimization passes on the program
func (p *OptimizationPipeline) Run(program *Program) {
	log.Debugf("running %d optimization passes on %s", len(p.passes), program.Name)

	for _, pass := range p.passes {
		before := len(program.Nodes)
		if pass.Apply(program) {
			log.Debugf("  %s: %d -> %d nodes", pass.Name(), before, len(program.Nodes))
		} else {
			log.Debugf("  %s: no changes", pass.Name())
		}
	}
}

// PeepholeMerge folds runs of adjacent cell additions and pointer moves
type PeepholeMerge struct{}

func (pm *PeepholeMerge) Name() string {
	return "Peephole Merge"
}

func (pm *PeepholeMerge) Description() string {
	return "Merges adjacent additions and pointer moves until nothing changes"
}

func (pm *PeepholeMerge) Apply(program *Program) bool {
	before := len(program.Nodes)
	program.Nodes = Optimize(program.Nodes)
	// Every merge removes at least one node, so an unchanged length means an
	// unchanged program.
	return len(program.Nodes) != before
}

// Optimize rewrites nodes to a fixed point: passes repeat until one leaves
// the length unchanged. The input slice is not modified.
func Optimize(nodes []Node) []Node {
	current := make([]Node, len(nodes))
	copy(current, nodes)

	for {
		next := peephole(current)
		if len(next) == len(current) {
			return next
		}
		current = next
	}
}

// peephole runs one left-to-right pass, comparing each node with the last
// node kept so far
func peephole(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))

	for _, n := range nodes {
		if len(out) > 0 {
			if merged, ok := merge(out[len(out)-1], n); ok {
				out = append(out[:len(out)-1], merged...)
				continue
			}
		}
		out = append(out, n)
	}

	return out
}

// merge combines prev and next when they are compatible. The result holds
// zero or one node. Additions that sum to zero are kept.
func merge(prev, next Node) ([]Node, bool) {
	switch p := prev.(type) {
	case Add:
		if n, ok := next.(Add); ok {
			return []Node{Add{Delta: p.Delta + n.Delta}}, true
		}
	case ShiftLeft:
		switch n := next.(type) {
		case ShiftLeft:
			return []Node{ShiftLeft{N: p.N + n.N}}, true
		case ShiftRight:
			return netShift(n.N, p.N), true
		}
	case ShiftRight:
		switch n := next.(type) {
		case ShiftRight:
			return []Node{ShiftRight{N: p.N + n.N}}, true
		case ShiftLeft:
			return netShift(p.N, n.N), true
		}
	}
	return nil, false
}

// netShift cancels right against left and keeps whatever distance remains
func netShift(right, left uint64) []Node {
	switch {
	case right > left:
		return []Node{ShiftRight{N: right - left}}
	case left > right:
		return []Node{ShiftLeft{N: left - right}}
	default:
		return nil
	}
}
