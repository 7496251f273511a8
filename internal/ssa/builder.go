package ssa

import (
	"fmt"
)

// Builder constructs one Function. Mutable variables are turned into SSA
// values on the fly: reads in blocks that may still gain predecessors create
// placeholder phis, which are completed when the block is sealed. Phis that
// turn out to merge a single value are removed again.
//
// Misuse of the builder (emitting into a terminated block, adding a
// predecessor to a sealed block, reading an undefined variable) is a bug in
// the caller and panics.
type Builder struct {
	fn           *Function
	currentBlock *Block
	valueCounter int
	blockCounter int
	instCounter  int
	slotCounter  int

	varTypes       []Type
	currentDefs    map[Variable]map[*Block]*Value
	incompletePhis map[*Block][]*PhiInstruction
	finalized      bool
}

// NewBuilder creates a builder for a function called name
func NewBuilder(name string) *Builder {
	return &Builder{
		fn: &Function{
			Name:   name,
			Blocks: []*Block{},
		},
		currentDefs:    make(map[Variable]map[*Block]*Value),
		incompletePhis: make(map[*Block][]*PhiInstruction),
	}
}

// Function returns the function under construction
func (b *Builder) Function() *Function {
	return b.fn
}

// DeclareSignature sets the function's own signature
func (b *Builder) DeclareSignature(sig Signature) {
	b.fn.Signature = sig
}

// DeclareExternal makes an external function callable from the body
func (b *Builder) DeclareExternal(name string, sig Signature) *ExtFunc {
	for _, ext := range b.fn.Externals {
		if ext.Name == name {
			return ext
		}
	}
	ext := &ExtFunc{ID: len(b.fn.Externals), Name: name, Signature: sig}
	b.fn.Externals = append(b.fn.Externals, ext)
	return ext
}

// CreateBlock creates a block. It joins the layout the first time it is
// switched to; the first block laid out is the entry block.
func (b *Builder) CreateBlock() *Block {
	block := &Block{
		ID:           b.blockCounter,
		Instructions: []Instruction{},
		Predecessors: []*Block{},
	}
	b.blockCounter++
	return block
}

// SwitchToBlock directs further instructions into block
func (b *Builder) SwitchToBlock(block *Block) {
	if !block.inLayout {
		block.inLayout = true
		b.fn.Blocks = append(b.fn.Blocks, block)
		if b.fn.Entry == nil {
			b.fn.Entry = block
		}
	}
	b.currentBlock = block
}

// CurrentBlock returns the block instructions are emitted into
func (b *Builder) CurrentBlock() *Block {
	return b.currentBlock
}

// SealBlock declares that block will get no further predecessors and
// completes the phis that were waiting on that
func (b *Builder) SealBlock(block *Block) {
	if block.sealed {
		return
	}
	for _, phi := range b.incompletePhis[block] {
		b.addPhiOperands(phi)
	}
	delete(b.incompletePhis, block)
	block.sealed = true
}

// SealAllBlocks seals every block in the layout
func (b *Builder) SealAllBlocks() {
	for _, block := range b.fn.Blocks {
		b.SealBlock(block)
	}
}

// CreateStackSlot reserves size bytes in the function's frame
func (b *Builder) CreateStackSlot(size uint32) *StackSlot {
	slot := &StackSlot{ID: b.slotCounter, Size: size}
	b.slotCounter++
	b.fn.StackSlots = append(b.fn.StackSlots, slot)
	return slot
}

// DeclareVar creates a mutable variable of type typ
func (b *Builder) DeclareVar(typ Type) Variable {
	v := Variable(len(b.varTypes))
	b.varTypes = append(b.varTypes, typ)
	return v
}

// DefVar assigns val to v in the current block
func (b *Builder) DefVar(v Variable, val *Value) {
	if b.varTypes[v] != val.Type {
		panic(fmt.Sprintf("ssa: variable %d has type %s, cannot define it with %s of type %s", v, b.varTypes[v], val, val.Type))
	}
	b.writeVariable(v, b.mustCurrent(), val)
}

// UseVar returns the value v holds at the current point
func (b *Builder) UseVar(v Variable) *Value {
	return b.readVariable(v, b.mustCurrent())
}

// Instructions

func (b *Builder) StackAddr(typ Type, slot *StackSlot, offset int32) *Value {
	inst := &StackAddrInstruction{ID: b.nextInstID(), Slot: slot, Offset: offset}
	inst.Result = b.createValue(typ, inst)
	b.addInstruction(inst)
	return inst.Result
}

func (b *Builder) Iconst(typ Type, imm int64) *Value {
	inst := &ConstInstruction{ID: b.nextInstID(), Imm: imm}
	inst.Result = b.createValue(typ, inst)
	b.addInstruction(inst)
	return inst.Result
}

func (b *Builder) Iadd(x, y *Value) *Value {
	return b.binary(OpIadd, x, y)
}

func (b *Builder) Isub(x, y *Value) *Value {
	return b.binary(OpIsub, x, y)
}

func (b *Builder) binary(op BinaryOp, x, y *Value) *Value {
	inst := &BinaryInstruction{ID: b.nextInstID(), Op: op, Left: x, Right: y}
	inst.Result = b.createValue(x.Type, inst)
	b.addInstruction(inst)
	return inst.Result
}

// Icmp compares two integers; the result is an i8 holding 0 or 1
func (b *Builder) Icmp(cc IntCC, x, y *Value) *Value {
	inst := &IcmpInstruction{ID: b.nextInstID(), Cond: cc, Left: x, Right: y}
	inst.Result = b.createValue(I8, inst)
	b.addInstruction(inst)
	return inst.Result
}

func (b *Builder) Load(typ Type, flags MemFlags, addr *Value, offset int32) *Value {
	inst := &LoadInstruction{ID: b.nextInstID(), Flags: flags, Address: addr, Offset: offset}
	inst.Result = b.createValue(typ, inst)
	b.addInstruction(inst)
	return inst.Result
}

func (b *Builder) Store(flags MemFlags, val, addr *Value, offset int32) {
	b.addInstruction(&StoreInstruction{ID: b.nextInstID(), Flags: flags, Value: val, Address: addr, Offset: offset})
}

func (b *Builder) PtrToInt(typ Type, v *Value) *Value {
	return b.conv(OpPtrToInt, typ, v)
}

func (b *Builder) IntToPtr(v *Value) *Value {
	return b.conv(OpIntToPtr, Ptr, v)
}

func (b *Builder) conv(op ConvOp, typ Type, v *Value) *Value {
	inst := &ConvInstruction{ID: b.nextInstID(), Op: op, Arg: v}
	inst.Result = b.createValue(typ, inst)
	b.addInstruction(inst)
	return inst.Result
}

// Call emits a call to an external function and returns its results
func (b *Builder) Call(fn *ExtFunc, args ...*Value) []*Value {
	inst := &CallInstruction{ID: b.nextInstID(), Callee: fn, Args: args}
	for _, ret := range fn.Signature.Returns {
		inst.Results = append(inst.Results, b.createValue(ret, inst))
	}
	b.addInstruction(inst)
	return inst.Results
}

// Terminators

func (b *Builder) Brif(cond *Value, then, els *Block) {
	b.terminate(&BranchTerminator{ID: b.nextInstID(), Condition: cond, TrueBlock: then, FalseBlock: els})
}

func (b *Builder) Jump(target *Block) {
	b.terminate(&JumpTerminator{ID: b.nextInstID(), Target: target})
}

func (b *Builder) Return(vals ...*Value) {
	b.terminate(&ReturnTerminator{ID: b.nextInstID(), Values: vals})
}

// Finalize ends construction; no further instructions may be added
func (b *Builder) Finalize() {
	b.finalized = true
	b.currentBlock = nil
}

// Verify runs the structural verifier over the function
func (b *Builder) Verify() error {
	return Verify(b.fn)
}

// Helper methods

func (b *Builder) mustCurrent() *Block {
	if b.finalized {
		panic("ssa: builder used after Finalize")
	}
	if b.currentBlock == nil {
		panic("ssa: no current block")
	}
	return b.currentBlock
}

func (b *Builder) nextInstID() int {
	id := b.instCounter
	b.instCounter++
	return id
}

func (b *Builder) createValue(typ Type, def Instruction) *Value {
	v := &Value{
		ID:    b.valueCounter,
		Type:  typ,
		Block: b.currentBlock,
		Def:   def,
	}
	b.valueCounter++
	return v
}

func (b *Builder) addInstruction(inst Instruction) {
	block := b.mustCurrent()
	if block.Terminator != nil {
		panic(fmt.Sprintf("ssa: %s is already terminated", block))
	}
	setBlock(inst, block)
	block.Instructions = append(block.Instructions, inst)
}

func (b *Builder) terminate(term Terminator) {
	block := b.mustCurrent()
	if block.Terminator != nil {
		panic(fmt.Sprintf("ssa: %s is already terminated", block))
	}
	for _, succ := range term.GetSuccessors() {
		if succ.sealed {
			panic(fmt.Sprintf("ssa: cannot add %s as a predecessor of sealed %s", block, succ))
		}
		succ.Predecessors = append(succ.Predecessors, block)
	}
	setBlock(term, block)
	block.Terminator = term
}

func setBlock(inst Instruction, block *Block) {
	switch i := inst.(type) {
	case *PhiInstruction:
		i.Block = block
	case *ConstInstruction:
		i.Block = block
	case *BinaryInstruction:
		i.Block = block
	case *IcmpInstruction:
		i.Block = block
	case *LoadInstruction:
		i.Block = block
	case *StoreInstruction:
		i.Block = block
	case *StackAddrInstruction:
		i.Block = block
	case *ConvInstruction:
		i.Block = block
	case *CallInstruction:
		i.Block = block
	case *ReturnTerminator:
		i.Block = block
	case *BranchTerminator:
		i.Block = block
	case *JumpTerminator:
		i.Block = block
	}
}

// SSA construction

func (b *Builder) writeVariable(v Variable, block *Block, val *Value) {
	defs := b.currentDefs[v]
	if defs == nil {
		defs = make(map[*Block]*Value)
		b.currentDefs[v] = defs
	}
	defs[block] = val
}

func (b *Builder) readVariable(v Variable, block *Block) *Value {
	if val, ok := b.currentDefs[v][block]; ok {
		return val
	}
	return b.readVariableRecursive(v, block)
}

func (b *Builder) readVariableRecursive(v Variable, block *Block) *Value {
	var val *Value

	switch {
	case !block.sealed:
		phi := b.newPhi(v, block)
		b.incompletePhis[block] = append(b.incompletePhis[block], phi)
		val = phi.Result
	case len(block.Predecessors) == 0:
		panic(fmt.Sprintf("ssa: variable %d is used in %s before it is defined", v, block))
	case len(block.Predecessors) == 1:
		val = b.readVariable(v, block.Predecessors[0])
	default:
		// Break cycles through loops by writing the phi before reading
		// the predecessors.
		phi := b.newPhi(v, block)
		b.writeVariable(v, block, phi.Result)
		val = b.addPhiOperands(phi)
	}

	b.writeVariable(v, block, val)
	return val
}

// newPhi inserts an empty phi after the phis already at the head of block
func (b *Builder) newPhi(v Variable, block *Block) *PhiInstruction {
	phi := &PhiInstruction{ID: b.nextInstID(), Block: block, Variable: v}
	phi.Result = &Value{ID: b.valueCounter, Type: b.varTypes[v], Block: block, Def: phi}
	b.valueCounter++

	at := len(block.Phis())
	block.Instructions = append(block.Instructions, nil)
	copy(block.Instructions[at+1:], block.Instructions[at:])
	block.Instructions[at] = phi
	return phi
}

func (b *Builder) addPhiOperands(phi *PhiInstruction) *Value {
	for _, pred := range phi.Block.Predecessors {
		phi.Inputs = append(phi.Inputs, PhiInput{Pred: pred, Value: b.readVariable(phi.Variable, pred)})
	}
	return b.tryRemoveTrivialPhi(phi)
}

// tryRemoveTrivialPhi replaces a phi whose inputs are all the same value (or
// the phi itself) with that value
func (b *Builder) tryRemoveTrivialPhi(phi *PhiInstruction) *Value {
	var same *Value
	for _, in := range phi.Inputs {
		if in.Value == same || in.Value == phi.Result {
			continue
		}
		if same != nil {
			return phi.Result
		}
		same = in.Value
	}
	if same == nil {
		// Unreachable or not yet complete
		return phi.Result
	}

	users := b.usersOf(phi.Result)
	b.replaceAllUses(phi.Result, same)
	b.removeInstruction(phi)

	for _, user := range users {
		if userPhi, ok := user.(*PhiInstruction); ok && userPhi != phi && !userPhi.removed {
			b.tryRemoveTrivialPhi(userPhi)
		}
	}
	return same
}

func (b *Builder) usersOf(val *Value) []Instruction {
	var users []Instruction
	b.eachInstruction(func(inst Instruction) {
		for _, op := range inst.GetOperands() {
			if op == val {
				users = append(users, inst)
				return
			}
		}
	})
	return users
}

func (b *Builder) replaceAllUses(from, to *Value) {
	b.eachInstruction(func(inst Instruction) {
		inst.replaceOperand(from, to)
	})
	for _, defs := range b.currentDefs {
		for block, val := range defs {
			if val == from {
				defs[block] = to
			}
		}
	}
}

func (b *Builder) removeInstruction(phi *PhiInstruction) {
	phi.removed = true
	insts := phi.Block.Instructions
	for i, inst := range insts {
		if inst == Instruction(phi) {
			phi.Block.Instructions = append(insts[:i], insts[i+1:]...)
			return
		}
	}
}

func (b *Builder) eachInstruction(visit func(Instruction)) {
	for _, block := range b.fn.Blocks {
		for _, inst := range block.Instructions {
			visit(inst)
		}
		if block.Terminator != nil {
			visit(block.Terminator)
		}
	}
}
