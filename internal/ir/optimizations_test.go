package ir

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(n Node, count int) []Node {
	nodes := make([]Node, count)
	for i := range nodes {
		nodes[i] = n
	}
	return nodes
}

func TestOptimizeMergesAdds(t *testing.T) {
	assert.Equal(t, []Node{Add{Delta: 3}}, Optimize(repeat(Add{Delta: 1}, 3)))
}

func TestOptimizeAddWrapsAround(t *testing.T) {
	// A full turn of the cell still leaves a zero add behind
	assert.Equal(t, []Node{Add{Delta: 0}}, Optimize(repeat(Add{Delta: 1}, 256)))
	assert.Equal(t, []Node{Add{Delta: 0}}, Optimize([]Node{Add{Delta: 1}, Add{Delta: 255}}))
}

func TestOptimizeShiftCancellation(t *testing.T) {
	tests := []struct {
		name     string
		input    []Node
		expected []Node
	}{
		{
			name:     "equal shifts vanish",
			input:    []Node{ShiftRight{N: 3}, ShiftLeft{N: 3}},
			expected: nil,
		},
		{
			name:     "right wins",
			input:    []Node{ShiftRight{N: 5}, ShiftLeft{N: 2}},
			expected: []Node{ShiftRight{N: 3}},
		},
		{
			name:     "larger right after left",
			input:    []Node{ShiftLeft{N: 2}, ShiftRight{N: 5}},
			expected: []Node{ShiftRight{N: 3}},
		},
		{
			name:     "same direction sums",
			input:    []Node{ShiftLeft{N: 2}, ShiftLeft{N: 5}, ShiftRight{N: 1}},
			expected: []Node{ShiftLeft{N: 6}},
		},
		{
			name:     "large counts are not truncated",
			input:    []Node{ShiftRight{N: 1 << 40}, ShiftRight{N: 1}},
			expected: []Node{ShiftRight{N: 1<<40 + 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Optimize(tt.input)
			if tt.expected == nil {
				assert.Empty(t, result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestOptimizeCancellationExposesNewNeighbours(t *testing.T) {
	// Once the shifts cancel, the two adds become adjacent
	input := []Node{Add{Delta: 1}, ShiftRight{N: 1}, ShiftLeft{N: 1}, Add{Delta: 2}}
	assert.Equal(t, []Node{Add{Delta: 3}}, Optimize(input))
}

func TestOptimizeBarriers(t *testing.T) {
	barriers := []Node{Print{}, Read{}, BeginLoop{ID: 0}, EndLoop{ID: 0}}

	for _, barrier := range barriers {
		t.Run(barrier.String(), func(t *testing.T) {
			input := []Node{Add{Delta: 1}, barrier, Add{Delta: 1}}
			assert.Equal(t, input, Optimize(input))

			shifts := []Node{ShiftRight{N: 1}, barrier, ShiftLeft{N: 1}}
			assert.Equal(t, shifts, Optimize(shifts))
		})
	}
}

func TestOptimizeAddDoesNotMergeWithShift(t *testing.T) {
	input := []Node{Add{Delta: 1}, ShiftRight{N: 1}, Add{Delta: 1}}
	assert.Equal(t, input, Optimize(input))
}

func TestOptimizeEmpty(t *testing.T) {
	assert.Empty(t, Optimize(nil))
	assert.Empty(t, Optimize([]Node{}))
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	input := []Node{Add{Delta: 1}, Add{Delta: 1}, ShiftRight{N: 2}, ShiftLeft{N: 2}}
	snapshot := append([]Node(nil), input...)

	Optimize(input)
	assert.Equal(t, snapshot, input)
}

// randomProgram generates a well-nested node sequence
func randomProgram(r *rand.Rand, length int) []Node {
	var nodes []Node
	var open []uint32
	var nextID uint32

	for i := 0; i < length; i++ {
		switch r.Intn(8) {
		case 0:
			nodes = append(nodes, Add{Delta: 1})
		case 1:
			nodes = append(nodes, Add{Delta: 255})
		case 2:
			nodes = append(nodes, ShiftLeft{N: uint64(r.Intn(3) + 1)})
		case 3:
			nodes = append(nodes, ShiftRight{N: uint64(r.Intn(3) + 1)})
		case 4:
			nodes = append(nodes, Print{})
		case 5:
			nodes = append(nodes, Read{})
		case 6:
			nodes = append(nodes, BeginLoop{ID: nextID})
			open = append(open, nextID)
			nextID++
		case 7:
			if len(open) > 0 {
				nodes = append(nodes, EndLoop{ID: open[len(open)-1]})
				open = open[:len(open)-1]
			}
		}
	}
	for len(open) > 0 {
		nodes = append(nodes, EndLoop{ID: open[len(open)-1]})
		open = open[:len(open)-1]
	}
	return nodes
}

func TestOptimizeIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		program := randomProgram(r, r.Intn(64))
		once := Optimize(program)
		twice := Optimize(once)
		require.Equal(t, once, twice, "program %s", PrintNodes(program))
		assert.LessOrEqual(t, len(once), len(program))
	}
}

func TestOptimizeKeepsLoopMarkers(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		program := randomProgram(r, 48)
		optimized := &Program{Nodes: Optimize(program)}
		original := &Program{Nodes: program}
		assert.Equal(t, original.LoopIDs(), optimized.LoopIDs())
	}
}

func TestNewOptimizationPipeline(t *testing.T) {
	pipeline := NewOptimizationPipeline()
	require.NotNil(t, pipeline)
	require.Len(t, pipeline.passes, 1)

	pass := pipeline.passes[0]
	assert.Equal(t, "Peephole Merge", pass.Name())
	assert.NotEmpty(t, pass.Description())
}

func TestOptimizationPipelineRun(t *testing.T) {
	program := &Program{
		Name:  "run.b",
		Nodes: []Node{Add{Delta: 1}, Add{Delta: 1}, Print{}},
	}

	NewOptimizationPipeline().Run(program)
	assert.Equal(t, []Node{Add{Delta: 2}, Print{}}, program.Nodes)
}

func TestPeepholeMergeReportsChanges(t *testing.T) {
	pass := &PeepholeMerge{}

	program := &Program{Nodes: []Node{Print{}, Read{}}}
	assert.False(t, pass.Apply(program))

	program = &Program{Nodes: []Node{ShiftRight{N: 1}, ShiftLeft{N: 1}}}
	assert.True(t, pass.Apply(program))
	assert.Empty(t, program.Nodes)
}

func TestBuildProgram(t *testing.T) {
	program := BuildProgram("build.b", []Node{Add{Delta: 255}, Add{Delta: 255}, BeginLoop{ID: 0}, EndLoop{ID: 0}})
	assert.Equal(t, "build.b", program.Name)
	assert.Equal(t, []Node{Add{Delta: 254}, BeginLoop{ID: 0}, EndLoop{ID: 0}}, program.Nodes)
}
