package ssa

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrStepLimit is returned when a run executes more instructions than
	// the interpreter's StepLimit allows
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrOutOfBounds is returned for memory accesses outside any stack slot
	ErrOutOfBounds = errors.New("memory access out of bounds")
)

// Poison fills fresh stack slots so reads of uninitialized memory stand out
const Poison byte = 0xCD

const checkInterval = 4096

// Runtime provides character I/O to interpreted code
type Runtime interface {
	Getchar() byte
	Putchar(c byte) byte
}

// IORuntime reads from In and writes to Out. Reading past the end of the
// input yields 0xFF, the truncated EOF of C's getchar.
type IORuntime struct {
	in  *bufio.Reader
	out io.Writer
	err error
}

// NewIORuntime creates a runtime over in and out; either may be nil
func NewIORuntime(in io.Reader, out io.Writer) *IORuntime {
	rt := &IORuntime{out: out}
	if in != nil {
		rt.in = bufio.NewReader(in)
	}
	return rt
}

func (rt *IORuntime) Getchar() byte {
	if rt.in == nil {
		return 0xFF
	}
	c, err := rt.in.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) && rt.err == nil {
			rt.err = err
		}
		return 0xFF
	}
	return c
}

func (rt *IORuntime) Putchar(c byte) byte {
	if rt.out == nil {
		return c
	}
	if _, err := rt.out.Write([]byte{c}); err != nil && rt.err == nil {
		rt.err = err
	}
	return c
}

// Err returns the first I/O error other than end of input
func (rt *IORuntime) Err() error {
	return rt.err
}

// Native implements an external function for the interpreter. Arguments and
// results are raw bit patterns of the declared types.
type Native func(in *Interpreter, args []uint64) ([]uint64, error)

// Interpreter executes functions directly, resolving external calls to
// registered natives. The default natives are getchar, putchar and memset.
type Interpreter struct {
	Runtime   Runtime
	StepLimit int // zero means unlimited

	natives map[string]Native
	frame   map[*StackSlot][]byte
	slots   []*StackSlot
	steps   int
}

// NewInterpreter creates an interpreter doing I/O through rt. A nil rt
// reads end of input and discards output.
func NewInterpreter(rt Runtime) *Interpreter {
	if rt == nil {
		rt = NewIORuntime(nil, nil)
	}
	in := &Interpreter{
		Runtime: rt,
		natives: make(map[string]Native),
	}
	in.Register("getchar", nativeGetchar)
	in.Register("putchar", nativePutchar)
	in.Register("memset", nativeMemset)
	return in
}

// Register binds name to a native, replacing any earlier binding
func (in *Interpreter) Register(name string, fn Native) {
	in.natives[name] = fn
}

// Steps returns the number of instructions the last run executed
func (in *Interpreter) Steps() int {
	return in.steps
}

// Memory returns the contents of slot as the last run left it
func (in *Interpreter) Memory(slot *StackSlot) []byte {
	return in.frame[slot]
}

// Run executes fn from its entry block and returns its results
func (in *Interpreter) Run(ctx context.Context, fn *Function) ([]uint64, error) {
	if fn.Entry == nil {
		return nil, fmt.Errorf("function %s has no entry block", fn.Name)
	}
	for _, ext := range fn.Externals {
		if _, ok := in.natives[ext.Name]; !ok {
			return nil, fmt.Errorf("no native registered for external %s", ext.Name)
		}
	}

	in.steps = 0
	in.slots = fn.StackSlots
	in.frame = make(map[*StackSlot][]byte, len(fn.StackSlots))
	for _, slot := range fn.StackSlots {
		mem := make([]byte, slot.Size)
		for i := range mem {
			mem[i] = Poison
		}
		in.frame[slot] = mem
	}

	values := make(map[*Value]uint64)
	var pred *Block
	block := fn.Entry

	for {
		// Phis read their inputs simultaneously on block entry
		phis := block.Phis()
		if len(phis) > 0 {
			incoming := make([]uint64, len(phis))
			for i, phi := range phis {
				val := phi.InputFor(pred)
				if val == nil {
					return nil, fmt.Errorf("%s: phi %s has no input for %s", block, phi.Result, pred)
				}
				incoming[i] = values[val]
			}
			for i, phi := range phis {
				values[phi.Result] = incoming[i]
			}
		}

		for _, inst := range block.Instructions[len(phis):] {
			if err := in.step(ctx); err != nil {
				return nil, err
			}
			if err := in.exec(inst, values); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", block, inst, err)
			}
		}

		if err := in.step(ctx); err != nil {
			return nil, err
		}
		switch term := block.Terminator.(type) {
		case *JumpTerminator:
			pred, block = block, term.Target
		case *BranchTerminator:
			next := term.FalseBlock
			if values[term.Condition] != 0 {
				next = term.TrueBlock
			}
			pred, block = block, next
		case *ReturnTerminator:
			results := make([]uint64, len(term.Values))
			for i, v := range term.Values {
				results[i] = values[v]
			}
			return results, nil
		default:
			return nil, fmt.Errorf("%s is not terminated", block)
		}
	}
}

func (in *Interpreter) step(ctx context.Context) error {
	in.steps++
	if in.StepLimit > 0 && in.steps > in.StepLimit {
		return fmt.Errorf("%w after %d instructions", ErrStepLimit, in.StepLimit)
	}
	if in.steps%checkInterval == 0 {
		return ctx.Err()
	}
	return nil
}

func (in *Interpreter) exec(inst Instruction, values map[*Value]uint64) error {
	switch i := inst.(type) {
	case *ConstInstruction:
		values[i.Result] = truncate(i.Result.Type, uint64(i.Imm))

	case *BinaryInstruction:
		x, y := values[i.Left], values[i.Right]
		switch i.Op {
		case OpIadd:
			values[i.Result] = truncate(i.Result.Type, x+y)
		case OpIsub:
			values[i.Result] = truncate(i.Result.Type, x-y)
		default:
			return fmt.Errorf("unknown binary op %s", i.Op)
		}

	case *IcmpInstruction:
		eq := values[i.Left] == values[i.Right]
		if i.Cond == NotEqual {
			eq = !eq
		}
		values[i.Result] = 0
		if eq {
			values[i.Result] = 1
		}

	case *StackAddrInstruction:
		index := in.slotIndex(i.Slot)
		if index < 0 {
			return fmt.Errorf("%w: unknown stack slot %s", ErrOutOfBounds, i.Slot)
		}
		values[i.Result] = slotBase(index) + uint64(int64(i.Offset))

	case *LoadInstruction:
		addr := values[i.Address] + uint64(int64(i.Offset))
		mem, err := in.access(addr, uint64(i.Result.Type.Bytes()))
		if err != nil {
			return err
		}
		values[i.Result] = littleEndian(mem)

	case *StoreInstruction:
		addr := values[i.Address] + uint64(int64(i.Offset))
		mem, err := in.access(addr, uint64(i.Value.Type.Bytes()))
		if err != nil {
			return err
		}
		val := values[i.Value]
		for b := range mem {
			mem[b] = byte(val >> (8 * b))
		}

	case *ConvInstruction:
		values[i.Result] = truncate(i.Result.Type, values[i.Arg])

	case *CallInstruction:
		args := make([]uint64, len(i.Args))
		for a, v := range i.Args {
			args[a] = values[v]
		}
		results, err := in.natives[i.Callee.Name](in, args)
		if err != nil {
			return err
		}
		if len(results) != len(i.Results) {
			return fmt.Errorf("%s returned %d values, want %d", i.Callee.Name, len(results), len(i.Results))
		}
		for r, v := range i.Results {
			values[v] = truncate(v.Type, results[r])
		}

	default:
		return fmt.Errorf("cannot interpret %T", inst)
	}
	return nil
}

// Fill sets n bytes starting at addr to c
func (in *Interpreter) Fill(addr uint64, c byte, n uint64) error {
	mem, err := in.access(addr, n)
	if err != nil {
		return err
	}
	for i := range mem {
		mem[i] = c
	}
	return nil
}

// access returns the n bytes at addr, which must lie inside one stack slot
func (in *Interpreter) access(addr, n uint64) ([]byte, error) {
	index := int(addr>>32) - 1
	offset := addr & 0xFFFFFFFF
	if index < 0 || index >= len(in.slots) {
		return nil, fmt.Errorf("%w: address %#x", ErrOutOfBounds, addr)
	}
	mem := in.frame[in.slots[index]]
	if n > uint64(len(mem)) || offset > uint64(len(mem))-n {
		return nil, fmt.Errorf("%w: %d bytes at offset %d of %s", ErrOutOfBounds, n, offset, in.slots[index])
	}
	return mem[offset : offset+n], nil
}

func (in *Interpreter) slotIndex(slot *StackSlot) int {
	for i, s := range in.slots {
		if s == slot {
			return i
		}
	}
	return -1
}

// Slot i lives in its own 4 GiB window; address 0 stays invalid
func slotBase(index int) uint64 {
	return uint64(index+1) << 32
}

func truncate(t Type, v uint64) uint64 {
	switch t {
	case I8:
		return v & 0xFF
	case I32:
		return v & 0xFFFFFFFF
	default:
		return v
	}
}

func littleEndian(mem []byte) uint64 {
	var v uint64
	for i := len(mem) - 1; i >= 0; i-- {
		v = v<<8 | uint64(mem[i])
	}
	return v
}

func nativeGetchar(in *Interpreter, _ []uint64) ([]uint64, error) {
	return []uint64{uint64(in.Runtime.Getchar())}, nil
}

func nativePutchar(in *Interpreter, args []uint64) ([]uint64, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("putchar takes 1 argument, got %d", len(args))
	}
	return []uint64{uint64(in.Runtime.Putchar(byte(args[0])))}, nil
}

func nativeMemset(in *Interpreter, args []uint64) ([]uint64, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("memset takes 3 arguments, got %d", len(args))
	}
	if err := in.Fill(args[0], byte(args[1]), args[2]); err != nil {
		return nil, err
	}
	return []uint64{args[0]}, nil
}
