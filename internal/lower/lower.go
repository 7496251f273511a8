// Package lower turns an optimized node sequence into one SSA function.
//
// The generated function owns a zero-filled tape of TapeSize bytes and a
// single pointer variable into it. Every loop gets four blocks: the header
// tests the cell before the first iteration, the body holds the loop's
// nodes, the latch re-tests after each iteration and the exit is where
// control continues once the cell is zero. Pointer movement and cell
// accesses are unchecked.
package lower

import (
	"github.com/tliron/commonlog"

	"bfc/internal/errors"
	"bfc/internal/ir"
	"bfc/internal/ssa"
)

// TapeSize is the number of cells in the tape
const TapeSize = 1024

const stage = "lower"

var log = commonlog.GetLogger("bfc.lower")

// Builder is the function-building interface lowering emits into.
// *ssa.Builder implements it.
type Builder interface {
	DeclareSignature(sig ssa.Signature)
	DeclareExternal(name string, sig ssa.Signature) *ssa.ExtFunc

	CreateBlock() *ssa.Block
	SwitchToBlock(block *ssa.Block)
	SealBlock(block *ssa.Block)
	SealAllBlocks()

	CreateStackSlot(size uint32) *ssa.StackSlot
	StackAddr(typ ssa.Type, slot *ssa.StackSlot, offset int32) *ssa.Value

	DeclareVar(typ ssa.Type) ssa.Variable
	DefVar(v ssa.Variable, val *ssa.Value)
	UseVar(v ssa.Variable) *ssa.Value

	Iconst(typ ssa.Type, imm int64) *ssa.Value
	Iadd(x, y *ssa.Value) *ssa.Value
	Isub(x, y *ssa.Value) *ssa.Value
	Icmp(cc ssa.IntCC, x, y *ssa.Value) *ssa.Value
	Load(typ ssa.Type, flags ssa.MemFlags, addr *ssa.Value, offset int32) *ssa.Value
	Store(flags ssa.MemFlags, val, addr *ssa.Value, offset int32)
	PtrToInt(typ ssa.Type, v *ssa.Value) *ssa.Value
	IntToPtr(v *ssa.Value) *ssa.Value
	Call(fn *ssa.ExtFunc, args ...*ssa.Value) []*ssa.Value

	Brif(cond *ssa.Value, then, els *ssa.Block)
	Jump(target *ssa.Block)
	Return(vals ...*ssa.Value)

	Finalize()
	Verify() error
}

// Primitives are the external functions generated code calls
type Primitives struct {
	ReadByte  *ssa.ExtFunc // getchar: () -> i8
	WriteByte *ssa.ExtFunc // putchar: (i8) -> i8
	ZeroFill  *ssa.ExtFunc // memset: (ptr, i32, i64) -> ptr
}

// DefaultPrimitives declares the C library functions on b
func DefaultPrimitives(b Builder) Primitives {
	return Primitives{
		ReadByte: b.DeclareExternal("getchar", ssa.Signature{
			Returns:  []ssa.Type{ssa.I8},
			CallConv: ssa.SystemV,
		}),
		WriteByte: b.DeclareExternal("putchar", ssa.Signature{
			Params:   []ssa.Type{ssa.I8},
			Returns:  []ssa.Type{ssa.I8},
			CallConv: ssa.SystemV,
		}),
		ZeroFill: b.DeclareExternal("memset", ssa.Signature{
			Params:   []ssa.Type{ssa.Ptr, ssa.I32, ssa.I64},
			Returns:  []ssa.Type{ssa.Ptr},
			CallConv: ssa.SystemV,
		}),
	}
}

// LoopBlocks are the blocks generated for one loop
type LoopBlocks struct {
	Header *ssa.Block
	Body   *ssa.Block
	Latch  *ssa.Block
	Exit   *ssa.Block
}

// Lowerer emits one function. It is not safe for concurrent use; each
// compilation unit gets its own.
type Lowerer struct {
	b     Builder
	prims Primitives

	tape  *ssa.StackSlot
	ptr   ssa.Variable
	loops []*LoopBlocks // indexed by loop id
}

// New creates a lowerer emitting into b
func New(b Builder, prims Primitives) *Lowerer {
	return &Lowerer{b: b, prims: prims}
}

// Function lowers nodes into b using prims
func Function(nodes []ir.Node, prims Primitives, b Builder) error {
	return New(b, prims).Lower(nodes)
}

// Loops returns the blocks allocated for each loop id; ids that never
// began a loop map to nil
func (l *Lowerer) Loops() []*LoopBlocks {
	return l.loops
}

// Tape returns the stack slot backing the tape
func (l *Lowerer) Tape() *ssa.StackSlot {
	return l.tape
}

// Lower emits the whole function for nodes and verifies it. A failed
// verification is returned as an *errors.InternalError. Nodes that use a
// loop id with no BeginLoop panic with an *errors.InternalError.
func (l *Lowerer) Lower(nodes []ir.Node) error {
	b := l.b
	b.DeclareSignature(ssa.Signature{
		Returns:  []ssa.Type{ssa.I32},
		CallConv: ssa.SystemV,
	})

	entry := b.CreateBlock()
	l.allocateLoops(nodes)

	b.SwitchToBlock(entry)
	b.SealBlock(entry)

	l.tape = b.CreateStackSlot(TapeSize)
	base := b.StackAddr(ssa.Ptr, l.tape, 0)
	l.ptr = b.DeclareVar(ssa.Ptr)
	b.DefVar(l.ptr, base)
	b.Call(l.prims.ZeroFill, base, b.Iconst(ssa.I32, 0), b.Iconst(ssa.I64, TapeSize))

	for _, node := range nodes {
		l.lowerNode(node)
	}

	b.Return(b.Iconst(ssa.I32, 0))
	b.SealAllBlocks()
	b.Finalize()

	if err := b.Verify(); err != nil {
		return errors.Internal(errors.ErrorVerification, stage, "lowered function failed verification").Wrap(err)
	}
	log.Debugf("lowered %d nodes with %d loops", len(nodes), len(l.loops))
	return nil
}

// allocateLoops creates the blocks of every loop before emission starts so
// that forward branches have a target
func (l *Lowerer) allocateLoops(nodes []ir.Node) {
	program := &ir.Program{Nodes: nodes}
	for _, id := range program.LoopIDs() {
		for int(id) >= len(l.loops) {
			l.loops = append(l.loops, nil)
		}
		l.loops[id] = &LoopBlocks{
			Header: l.b.CreateBlock(),
			Body:   l.b.CreateBlock(),
			Latch:  l.b.CreateBlock(),
			Exit:   l.b.CreateBlock(),
		}
	}
}

func (l *Lowerer) loop(id uint32) *LoopBlocks {
	if int(id) >= len(l.loops) || l.loops[id] == nil {
		panic(errors.Internal(errors.ErrorInternalLowering, stage, "no blocks allocated for loop %d", id))
	}
	return l.loops[id]
}

func (l *Lowerer) lowerNode(node ir.Node) {
	b := l.b

	switch n := node.(type) {
	case ir.Read:
		c := b.Call(l.prims.ReadByte)[0]
		b.Store(ssa.Trusted(), c, b.UseVar(l.ptr), 0)

	case ir.Print:
		c := b.Load(ssa.I8, ssa.Trusted(), b.UseVar(l.ptr), 0)
		b.Call(l.prims.WriteByte, c)

	case ir.Add:
		ptr := b.UseVar(l.ptr)
		c := b.Load(ssa.I8, ssa.Trusted(), ptr, 0)
		sum := b.Iadd(c, b.Iconst(ssa.I8, int64(n.Delta)))
		b.Store(ssa.Trusted(), sum, ptr, 0)

	case ir.ShiftLeft:
		l.movePointer(n.N, b.Isub)

	case ir.ShiftRight:
		l.movePointer(n.N, b.Iadd)

	case ir.BeginLoop:
		blocks := l.loop(n.ID)
		b.Jump(blocks.Header)

		// The header's only predecessor is the block before the loop
		b.SwitchToBlock(blocks.Header)
		b.SealBlock(blocks.Header)
		isZero := b.Icmp(ssa.Equal, l.loadCell(), b.Iconst(ssa.I8, 0))
		b.Brif(isZero, blocks.Exit, blocks.Body)

		b.SwitchToBlock(blocks.Body)

	case ir.EndLoop:
		blocks := l.loop(n.ID)
		b.Jump(blocks.Latch)

		b.SwitchToBlock(blocks.Latch)
		b.SealBlock(blocks.Latch)
		nonZero := b.Icmp(ssa.NotEqual, l.loadCell(), b.Iconst(ssa.I8, 0))
		b.Brif(nonZero, blocks.Body, blocks.Exit)

		// Body and exit are reached from the header and the latch only
		b.SealBlock(blocks.Body)
		b.SealBlock(blocks.Exit)
		b.SwitchToBlock(blocks.Exit)

	default:
		panic(errors.Internal(errors.ErrorInternalLowering, stage, "unknown node %T", node))
	}
}

func (l *Lowerer) loadCell() *ssa.Value {
	return l.b.Load(ssa.I8, ssa.Trusted(), l.b.UseVar(l.ptr), 0)
}

func (l *Lowerer) movePointer(n uint64, op func(x, y *ssa.Value) *ssa.Value) {
	b := l.b
	addr := b.PtrToInt(ssa.I64, b.UseVar(l.ptr))
	moved := op(addr, b.Iconst(ssa.I64, int64(n)))
	b.DefVar(l.ptr, b.IntToPtr(moved))
}
