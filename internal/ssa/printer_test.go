package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintFunction(t *testing.T) {
	b := NewBuilder("main")
	b.DeclareSignature(mainSignature)
	putchar := b.DeclareExternal("putchar", putcharSig)
	slot := b.CreateStackSlot(16)

	b.SwitchToBlock(b.CreateBlock())
	addr := b.StackAddr(Ptr, slot, 0)
	cell := b.Load(I8, Trusted(), addr, 1)
	b.Call(putchar, cell)
	b.Store(Trusted(), cell, addr, 0)
	b.Return(b.Iconst(I32, 0))

	expected := `function %main() -> i32 system_v {
    ss0 = explicit_slot 16
    fn0 = %putchar(i8) -> i8 system_v

block0:
    v0 = stack_addr.ptr ss0
    v1 = load.i8 notrap aligned v0+1
    v2 = call fn0(v1)
    store v1, notrap aligned v0
    v3 = iconst.i32 0
    return v3
}
`
	assert.Equal(t, expected, Print(b.Function()))
}

func TestPrintLoop(t *testing.T) {
	b, _ := buildCounter(2)
	out := Print(b.Function())

	assert.Contains(t, out, "block1:\n    v1 = phi.i32 [block0: v0], [block2: v5]\n")
	assert.Contains(t, out, "brif v3, block2, block3")
	assert.Contains(t, out, "jump block1")
}
