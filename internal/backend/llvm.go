// Package backend emits native code for lowered functions. Functions are
// translated into LLVM IR with llir/llvm; object files are produced by
// handing that IR to clang.
package backend

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/tliron/commonlog"

	"bfc/internal/errors"
	"bfc/internal/ssa"
)

const stage = "backend"

var log = commonlog.GetLogger("bfc.backend")

// EmitLLVM translates fn into an LLVM module exporting it under its own
// name. fn must have passed ssa.Verify. Phis become stack variables that
// predecessors store into, which keeps the module valid in any block order.
func EmitLLVM(fn *ssa.Function) (*ir.Module, error) {
	e := &emitter{
		module:    ir.NewModule(),
		fn:        fn,
		externals: make(map[*ssa.ExtFunc]*ir.Func),
		blocks:    make(map[*ssa.Block]*ir.Block),
		slots:     make(map[*ssa.StackSlot]*ir.InstAlloca),
		phis:      make(map[*ssa.PhiInstruction]*ir.InstAlloca),
		values:    make(map[*ssa.Value]value.Value),
	}
	if err := e.emit(); err != nil {
		return nil, errors.Internal(errors.ErrorEmission, stage, "cannot translate function %s", fn.Name).Wrap(err)
	}
	return e.module, nil
}

type emitter struct {
	module *ir.Module
	fn     *ssa.Function
	main   *ir.Func

	externals map[*ssa.ExtFunc]*ir.Func
	blocks    map[*ssa.Block]*ir.Block
	slots     map[*ssa.StackSlot]*ir.InstAlloca
	phis      map[*ssa.PhiInstruction]*ir.InstAlloca
	values    map[*ssa.Value]value.Value
}

func (e *emitter) emit() error {
	if e.fn.Entry == nil {
		return fmt.Errorf("function has no entry block")
	}

	for _, ext := range e.fn.Externals {
		f, err := e.declare(ext)
		if err != nil {
			return err
		}
		e.externals[ext] = f
	}

	ret, err := returnType(e.fn.Signature)
	if err != nil {
		return err
	}
	if len(e.fn.Signature.Params) > 0 {
		return fmt.Errorf("parameters are not supported")
	}
	e.main = e.module.NewFunc(e.fn.Name, ret)

	for _, block := range e.fn.Blocks {
		e.blocks[block] = e.main.NewBlock(block.String())
	}

	entry := e.blocks[e.fn.Entry]
	for _, slot := range e.fn.StackSlots {
		e.slots[slot] = entry.NewAlloca(types.NewArray(uint64(slot.Size), types.I8))
	}
	for _, block := range e.fn.Blocks {
		for _, phi := range block.Phis() {
			typ, err := llvmType(phi.Result.Type)
			if err != nil {
				return err
			}
			e.phis[phi] = entry.NewAlloca(typ)
		}
	}

	// Definitions dominate their uses, so reverse postorder sees every
	// value before it is needed
	reachable := make(map[*ssa.Block]bool)
	for _, block := range ssa.ReversePostorder(e.fn) {
		reachable[block] = true
		if err := e.emitBlock(block); err != nil {
			return fmt.Errorf("%s: %w", block, err)
		}
	}
	for _, block := range e.fn.Blocks {
		if !reachable[block] {
			e.blocks[block].NewUnreachable()
		}
	}

	log.Debugf("translated %s: %d blocks, %d externals", e.fn.Name, len(e.fn.Blocks), len(e.fn.Externals))
	return nil
}

func (e *emitter) declare(ext *ssa.ExtFunc) (*ir.Func, error) {
	ret, err := returnType(ext.Signature)
	if err != nil {
		return nil, fmt.Errorf("external %s: %w", ext.Name, err)
	}
	params := make([]*ir.Param, len(ext.Signature.Params))
	for i, p := range ext.Signature.Params {
		typ, err := llvmType(p)
		if err != nil {
			return nil, fmt.Errorf("external %s: %w", ext.Name, err)
		}
		params[i] = ir.NewParam("", typ)
	}
	return e.module.NewFunc(ext.Name, ret, params...), nil
}

func (e *emitter) emitBlock(block *ssa.Block) error {
	out := e.blocks[block]

	for _, inst := range block.Instructions {
		if err := e.emitInstruction(out, inst); err != nil {
			return fmt.Errorf("%s: %w", inst, err)
		}
	}

	// Hand phi inputs to the successors before leaving
	for _, succ := range block.Successors() {
		for _, phi := range succ.Phis() {
			in, err := e.use(phi.InputFor(block))
			if err != nil {
				return fmt.Errorf("%s: %w", phi, err)
			}
			out.NewStore(in, e.phis[phi])
		}
	}

	if err := e.emitTerminator(out, block.Terminator); err != nil {
		return fmt.Errorf("%s: %w", block.Terminator, err)
	}
	return nil
}

func (e *emitter) emitInstruction(out *ir.Block, inst ssa.Instruction) error {
	switch i := inst.(type) {
	case *ssa.PhiInstruction:
		typ, err := llvmType(i.Result.Type)
		if err != nil {
			return err
		}
		e.values[i.Result] = out.NewLoad(typ, e.phis[i])

	case *ssa.ConstInstruction:
		c, err := intConst(i.Result.Type, i.Imm)
		if err != nil {
			return err
		}
		e.values[i.Result] = c

	case *ssa.BinaryInstruction:
		x, y, err := e.use2(i.Left, i.Right)
		if err != nil {
			return err
		}
		switch i.Op {
		case ssa.OpIadd:
			e.values[i.Result] = out.NewAdd(x, y)
		case ssa.OpIsub:
			e.values[i.Result] = out.NewSub(x, y)
		default:
			return fmt.Errorf("unknown binary op %s", i.Op)
		}

	case *ssa.IcmpInstruction:
		x, y, err := e.use2(i.Left, i.Right)
		if err != nil {
			return err
		}
		pred := enum.IPredEQ
		if i.Cond == ssa.NotEqual {
			pred = enum.IPredNE
		}
		e.values[i.Result] = out.NewZExt(out.NewICmp(pred, x, y), types.I8)

	case *ssa.StackAddrInstruction:
		alloca := e.slots[i.Slot]
		e.values[i.Result] = out.NewGetElementPtr(alloca.ElemType, alloca,
			constant.NewInt(types.I64, 0), constant.NewInt(types.I64, int64(i.Offset)))

	case *ssa.LoadInstruction:
		typ, err := llvmType(i.Result.Type)
		if err != nil {
			return err
		}
		addr, err := e.address(out, i.Address, i.Offset, typ)
		if err != nil {
			return err
		}
		e.values[i.Result] = out.NewLoad(typ, addr)

	case *ssa.StoreInstruction:
		typ, err := llvmType(i.Value.Type)
		if err != nil {
			return err
		}
		val, err := e.use(i.Value)
		if err != nil {
			return err
		}
		addr, err := e.address(out, i.Address, i.Offset, typ)
		if err != nil {
			return err
		}
		out.NewStore(val, addr)

	case *ssa.ConvInstruction:
		arg, err := e.use(i.Arg)
		if err != nil {
			return err
		}
		typ, err := llvmType(i.Result.Type)
		if err != nil {
			return err
		}
		switch i.Op {
		case ssa.OpPtrToInt:
			e.values[i.Result] = out.NewPtrToInt(arg, typ)
		case ssa.OpIntToPtr:
			e.values[i.Result] = out.NewIntToPtr(arg, typ)
		default:
			return fmt.Errorf("unknown conversion %s", i.Op)
		}

	case *ssa.CallInstruction:
		callee, ok := e.externals[i.Callee]
		if !ok {
			return fmt.Errorf("call to undeclared function %s", i.Callee.Name)
		}
		args := make([]value.Value, len(i.Args))
		for a, v := range i.Args {
			arg, err := e.use(v)
			if err != nil {
				return err
			}
			args[a] = arg
		}
		call := out.NewCall(callee, args...)
		if len(i.Results) == 1 {
			e.values[i.Results[0]] = call
		}

	default:
		return fmt.Errorf("cannot translate %T", inst)
	}
	return nil
}

func (e *emitter) emitTerminator(out *ir.Block, term ssa.Terminator) error {
	switch t := term.(type) {
	case *ssa.JumpTerminator:
		out.NewBr(e.blocks[t.Target])

	case *ssa.BranchTerminator:
		cond, err := e.use(t.Condition)
		if err != nil {
			return err
		}
		zero := constant.NewInt(cond.Type().(*types.IntType), 0)
		out.NewCondBr(out.NewICmp(enum.IPredNE, cond, zero), e.blocks[t.TrueBlock], e.blocks[t.FalseBlock])

	case *ssa.ReturnTerminator:
		switch len(t.Values) {
		case 0:
			out.NewRet(nil)
		case 1:
			val, err := e.use(t.Values[0])
			if err != nil {
				return err
			}
			out.NewRet(val)
		default:
			return fmt.Errorf("multiple return values are not supported")
		}

	default:
		return fmt.Errorf("cannot translate terminator %T", term)
	}
	return nil
}

// address computes addr+offset as a pointer to typ
func (e *emitter) address(out *ir.Block, addr *ssa.Value, offset int32, typ types.Type) (value.Value, error) {
	ptr, err := e.use(addr)
	if err != nil {
		return nil, err
	}
	if offset != 0 {
		ptr = out.NewGetElementPtr(types.I8, ptr, constant.NewInt(types.I64, int64(offset)))
	}
	if !typ.Equal(types.I8) {
		ptr = out.NewBitCast(ptr, types.NewPointer(typ))
	}
	return ptr, nil
}

func (e *emitter) use(v *ssa.Value) (value.Value, error) {
	val, ok := e.values[v]
	if !ok {
		return nil, fmt.Errorf("%s is used before it is translated", v)
	}
	return val, nil
}

func (e *emitter) use2(x, y *ssa.Value) (value.Value, value.Value, error) {
	a, err := e.use(x)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.use(y)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func llvmType(t ssa.Type) (types.Type, error) {
	switch t {
	case ssa.I8:
		return types.I8, nil
	case ssa.I32:
		return types.I32, nil
	case ssa.I64:
		return types.I64, nil
	case ssa.Ptr:
		return types.I8Ptr, nil
	default:
		return nil, fmt.Errorf("no LLVM type for %s", t)
	}
}

func returnType(sig ssa.Signature) (types.Type, error) {
	switch len(sig.Returns) {
	case 0:
		return types.Void, nil
	case 1:
		return llvmType(sig.Returns[0])
	default:
		return nil, fmt.Errorf("multiple return values are not supported")
	}
}

// intConst narrows imm to the constant's width. LLVM reads integer
// constants as signed, so 255 in an i8 is written as -1.
func intConst(t ssa.Type, imm int64) (*constant.Int, error) {
	switch t {
	case ssa.I8:
		return constant.NewInt(types.I8, int64(int8(imm))), nil
	case ssa.I32:
		return constant.NewInt(types.I32, int64(int32(imm))), nil
	case ssa.I64:
		return constant.NewInt(types.I64, imm), nil
	default:
		return nil, fmt.Errorf("no integer constant of type %s", t)
	}
}
