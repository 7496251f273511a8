package ssa

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_runtime_test.go bfc/internal/ssa Runtime

var (
	getcharSig = Signature{Returns: []Type{I8}, CallConv: SystemV}
	putcharSig = Signature{Params: []Type{I8}, Returns: []Type{I8}, CallConv: SystemV}
	memsetSig  = Signature{Params: []Type{Ptr, I32, I64}, Returns: []Type{Ptr}, CallConv: SystemV}
)

// buildEcho reads one character and prints its successor
func buildEcho() *Function {
	b := NewBuilder("main")
	b.DeclareSignature(mainSignature)
	getchar := b.DeclareExternal("getchar", getcharSig)
	putchar := b.DeclareExternal("putchar", putcharSig)

	b.SwitchToBlock(b.CreateBlock())
	c := b.Call(getchar)[0]
	b.Call(putchar, b.Iadd(c, b.Iconst(I8, 1)))
	b.Return(b.Iconst(I32, 0))
	b.Finalize()
	return b.Function()
}

func TestInterpreterCallsRuntime(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := NewMockRuntime(ctrl)

	gomock.InOrder(
		rt.EXPECT().Getchar().Return(byte('a')),
		rt.EXPECT().Putchar(byte('b')).Return(byte('b')),
	)

	results, err := NewInterpreter(rt).Run(context.Background(), buildEcho())
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, results)
}

func TestInterpreterByteArithmeticWraps(t *testing.T) {
	ctrl := gomock.NewController(t)
	rt := NewMockRuntime(ctrl)

	rt.EXPECT().Getchar().Return(byte(0xFF))
	rt.EXPECT().Putchar(byte(0)).Return(byte(0))

	_, err := NewInterpreter(rt).Run(context.Background(), buildEcho())
	require.NoError(t, err)
}

func TestInterpreterWithoutRuntime(t *testing.T) {
	in := NewInterpreter(nil)
	require.NotNil(t, in.Runtime)

	results, err := in.Run(context.Background(), buildEcho())
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, results)
}

func TestIORuntime(t *testing.T) {
	var out bytes.Buffer
	rt := NewIORuntime(strings.NewReader("x"), &out)

	_, err := NewInterpreter(rt).Run(context.Background(), buildEcho())
	require.NoError(t, err)
	assert.Equal(t, "y", out.String())

	// End of input reads as 0xFF
	assert.Equal(t, byte(0xFF), rt.Getchar())
	assert.NoError(t, rt.Err())
}

func TestInterpreterStackMemory(t *testing.T) {
	b := NewBuilder("main")
	b.DeclareSignature(mainSignature)
	memset := b.DeclareExternal("memset", memsetSig)
	slot := b.CreateStackSlot(8)

	b.SwitchToBlock(b.CreateBlock())
	base := b.StackAddr(Ptr, slot, 0)
	b.Call(memset, base, b.Iconst(I32, 0), b.Iconst(I64, 6))
	b.Store(Trusted(), b.Iconst(I8, 42), base, 2)

	// Pointer arithmetic through integers lands on the same cell
	addr := b.IntToPtr(b.Iadd(b.PtrToInt(I64, base), b.Iconst(I64, 2)))
	loaded := b.Load(I8, Trusted(), addr, 0)
	b.Store(Trusted(), loaded, base, 3)
	b.Return(b.Iconst(I32, 0))
	require.NoError(t, b.Verify())

	in := NewInterpreter(NewIORuntime(nil, nil))
	_, err := in.Run(context.Background(), b.Function())
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 42, 42, 0, 0, Poison, Poison}, in.Memory(slot))
}

func TestInterpreterOutOfBounds(t *testing.T) {
	b := NewBuilder("main")
	b.DeclareSignature(mainSignature)
	slot := b.CreateStackSlot(4)

	b.SwitchToBlock(b.CreateBlock())
	b.Load(I8, Trusted(), b.StackAddr(Ptr, slot, 0), 4)
	b.Return(b.Iconst(I32, 0))

	_, err := NewInterpreter(NewIORuntime(nil, nil)).Run(context.Background(), b.Function())
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestInterpreterStepLimit(t *testing.T) {
	b := NewBuilder("spin")
	b.DeclareSignature(mainSignature)
	entry, loop := b.CreateBlock(), b.CreateBlock()

	b.SwitchToBlock(entry)
	b.Jump(loop)
	b.SwitchToBlock(loop)
	b.Jump(loop)

	in := NewInterpreter(NewIORuntime(nil, nil))
	in.StepLimit = 100
	_, err := in.Run(context.Background(), b.Function())
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, 101, in.Steps())
}

func TestInterpreterCancelled(t *testing.T) {
	b := NewBuilder("spin")
	entry := b.CreateBlock()
	b.SwitchToBlock(entry)
	b.Jump(entry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInterpreter(NewIORuntime(nil, nil)).Run(ctx, b.Function())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterpreterMissingNative(t *testing.T) {
	b := NewBuilder("main")
	b.DeclareExternal("abort", Signature{CallConv: SystemV})
	b.SwitchToBlock(b.CreateBlock())
	b.Return()

	_, err := NewInterpreter(NewIORuntime(nil, nil)).Run(context.Background(), b.Function())
	assert.ErrorContains(t, err, "no native registered for external abort")
}

func TestInterpreterCustomNative(t *testing.T) {
	b := NewBuilder("main")
	b.DeclareSignature(mainSignature)
	answer := b.DeclareExternal("answer", Signature{Returns: []Type{I32}, CallConv: SystemV})
	b.SwitchToBlock(b.CreateBlock())
	b.Return(b.Call(answer)[0])

	in := NewInterpreter(NewIORuntime(nil, nil))
	in.Register("answer", func(*Interpreter, []uint64) ([]uint64, error) {
		return []uint64{1<<32 + 42}, nil
	})
	results, err := in.Run(context.Background(), b.Function())
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, results)
}
