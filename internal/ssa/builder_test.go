package ssa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mainSignature = Signature{Returns: []Type{I32}, CallConv: SystemV}

// buildCounter builds a loop that counts a variable up to limit and
// returns it
func buildCounter(limit int64) (*Builder, *Block) {
	b := NewBuilder("count")
	b.DeclareSignature(mainSignature)

	entry := b.CreateBlock()
	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()

	b.SwitchToBlock(entry)
	b.SealBlock(entry)
	x := b.DeclareVar(I32)
	b.DefVar(x, b.Iconst(I32, 0))
	b.Jump(header)

	b.SwitchToBlock(header)
	cond := b.Icmp(NotEqual, b.UseVar(x), b.Iconst(I32, limit))
	b.Brif(cond, body, exit)

	b.SwitchToBlock(body)
	b.SealBlock(body)
	b.DefVar(x, b.Iadd(b.UseVar(x), b.Iconst(I32, 1)))
	b.Jump(header)
	b.SealBlock(header)

	b.SwitchToBlock(exit)
	b.SealBlock(exit)
	b.Return(b.UseVar(x))
	b.Finalize()
	return b, header
}

func TestBuilderFirstBlockIsEntry(t *testing.T) {
	b := NewBuilder("main")
	first := b.CreateBlock()
	second := b.CreateBlock()

	b.SwitchToBlock(first)
	b.Jump(second)
	b.SwitchToBlock(second)
	b.Return()

	fn := b.Function()
	assert.Same(t, first, fn.Entry)
	assert.Equal(t, []*Block{first, second}, fn.Blocks)
	assert.Equal(t, []*Block{first}, second.Predecessors)
}

func TestBuilderLoopVariableGetsPhi(t *testing.T) {
	b, header := buildCounter(5)
	require.NoError(t, b.Verify())

	phis := header.Phis()
	require.Len(t, phis, 1)
	assert.Len(t, phis[0].Inputs, 2)
	assert.Equal(t, I32, phis[0].Result.Type)

	results, err := NewInterpreter(NewIORuntime(nil, nil)).Run(context.Background(), b.Function())
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, results)
}

func TestBuilderRemovesTrivialPhi(t *testing.T) {
	b := NewBuilder("diamond")
	b.DeclareSignature(mainSignature)
	entry, left, right, join := b.CreateBlock(), b.CreateBlock(), b.CreateBlock(), b.CreateBlock()

	b.SwitchToBlock(entry)
	b.SealBlock(entry)
	x := b.DeclareVar(I32)
	initial := b.Iconst(I32, 7)
	b.DefVar(x, initial)
	b.Brif(b.Iconst(I8, 1), left, right)

	for _, arm := range []*Block{left, right} {
		b.SwitchToBlock(arm)
		b.SealBlock(arm)
		b.Jump(join)
	}

	b.SwitchToBlock(join)
	b.SealBlock(join)
	got := b.UseVar(x)
	b.Return(got)

	assert.Same(t, initial, got)
	assert.Empty(t, join.Phis())
	assert.NoError(t, b.Verify())
}

func TestBuilderUnchangedLoopVariableHasNoPhi(t *testing.T) {
	b := NewBuilder("loop")
	b.DeclareSignature(mainSignature)
	entry, header, body, exit := b.CreateBlock(), b.CreateBlock(), b.CreateBlock(), b.CreateBlock()

	b.SwitchToBlock(entry)
	b.SealBlock(entry)
	x := b.DeclareVar(I32)
	b.DefVar(x, b.Iconst(I32, 3))
	b.Jump(header)

	b.SwitchToBlock(header)
	b.Brif(b.Icmp(Equal, b.UseVar(x), b.Iconst(I32, 3)), exit, body)

	b.SwitchToBlock(body)
	b.SealBlock(body)
	b.Jump(header)
	b.SealBlock(header)

	b.SwitchToBlock(exit)
	b.SealBlock(exit)
	b.Return(b.UseVar(x))

	assert.Empty(t, header.Phis())
	assert.NoError(t, b.Verify())
}

func TestBuilderCallResults(t *testing.T) {
	b := NewBuilder("main")
	getchar := b.DeclareExternal("getchar", Signature{Returns: []Type{I8}, CallConv: SystemV})
	again := b.DeclareExternal("getchar", Signature{Returns: []Type{I8}, CallConv: SystemV})
	assert.Same(t, getchar, again)

	b.SwitchToBlock(b.CreateBlock())
	results := b.Call(getchar)
	require.Len(t, results, 1)
	assert.Equal(t, I8, results[0].Type)
}

func TestBuilderMisusePanics(t *testing.T) {
	t.Run("emit after terminator", func(t *testing.T) {
		b := NewBuilder("main")
		b.SwitchToBlock(b.CreateBlock())
		b.Return()
		assert.Panics(t, func() { b.Iconst(I8, 1) })
	})

	t.Run("branch into sealed block", func(t *testing.T) {
		b := NewBuilder("main")
		entry, target := b.CreateBlock(), b.CreateBlock()
		b.SealBlock(target)
		b.SwitchToBlock(entry)
		assert.Panics(t, func() { b.Jump(target) })
	})

	t.Run("undefined variable", func(t *testing.T) {
		b := NewBuilder("main")
		entry := b.CreateBlock()
		b.SwitchToBlock(entry)
		b.SealBlock(entry)
		x := b.DeclareVar(I8)
		assert.Panics(t, func() { b.UseVar(x) })
	})

	t.Run("variable type mismatch", func(t *testing.T) {
		b := NewBuilder("main")
		b.SwitchToBlock(b.CreateBlock())
		x := b.DeclareVar(Ptr)
		assert.Panics(t, func() { b.DefVar(x, b.Iconst(I64, 0)) })
	})

	t.Run("use after finalize", func(t *testing.T) {
		b := NewBuilder("main")
		b.SwitchToBlock(b.CreateBlock())
		b.Return()
		b.Finalize()
		assert.Panics(t, func() { b.Iconst(I8, 0) })
	})
}
