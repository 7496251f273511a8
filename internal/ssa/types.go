package ssa

import (
	"fmt"
	"strings"
)

// Low-level function representation handed to code generation.
// Functions are made of basic blocks holding instructions in SSA form; every
// block ends in exactly one terminator.

// Type is the machine type of a value
type Type int

const (
	Invalid Type = iota
	I8
	I32
	I64
	Ptr
)

func (t Type) String() string {
	switch t {
	case I8:
		return "i8"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Ptr:
		return "ptr"
	default:
		return "invalid"
	}
}

// Bytes is the size of a value of type t in memory
func (t Type) Bytes() int {
	switch t {
	case I8:
		return 1
	case I32:
		return 4
	case I64, Ptr:
		return 8
	default:
		return 0
	}
}

// IsInt reports whether t is an integer type
func (t Type) IsInt() bool {
	return t == I8 || t == I32 || t == I64
}

// CallConv names a calling convention
type CallConv string

const SystemV CallConv = "system_v"

// Signature describes the parameters and results of a function
type Signature struct {
	Params   []Type
	Returns  []Type
	CallConv CallConv
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	result := "(" + strings.Join(params, ", ") + ")"

	if len(s.Returns) > 0 {
		rets := make([]string, len(s.Returns))
		for i, r := range s.Returns {
			rets[i] = r.String()
		}
		result += " -> " + strings.Join(rets, ", ")
	}
	if s.CallConv != "" {
		result += " " + string(s.CallConv)
	}
	return result
}

// MemFlags qualifies a load or store
type MemFlags struct {
	Aligned bool
	NoTrap  bool
}

// Trusted marks an access the compiler promises is in bounds and aligned.
// Nothing checks the promise.
func Trusted() MemFlags {
	return MemFlags{Aligned: true, NoTrap: true}
}

func (f MemFlags) String() string {
	var parts []string
	if f.NoTrap {
		parts = append(parts, "notrap")
	}
	if f.Aligned {
		parts = append(parts, "aligned")
	}
	return strings.Join(parts, " ")
}

// IntCC is an integer comparison condition
type IntCC int

const (
	Equal IntCC = iota
	NotEqual
)

func (cc IntCC) String() string {
	if cc == Equal {
		return "eq"
	}
	return "ne"
}

// Variable is a mutable local that the builder turns into SSA values
type Variable int

// Value is an SSA value; each value has exactly one definition
type Value struct {
	ID    int
	Type  Type
	Block *Block
	Def   Instruction
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("v%d", v.ID)
}

// ExtFunc is an externally linked function the body may call
type ExtFunc struct {
	ID        int
	Name      string
	Signature Signature
}

// StackSlot is a fixed-size region in the function's frame
type StackSlot struct {
	ID   int
	Size uint32
}

func (s *StackSlot) String() string { return fmt.Sprintf("ss%d", s.ID) }

// Block is a basic block
type Block struct {
	ID           int
	Instructions []Instruction
	Terminator   Terminator
	Predecessors []*Block

	sealed   bool
	inLayout bool
}

func (b *Block) String() string { return fmt.Sprintf("block%d", b.ID) }

// Sealed reports whether the block may still gain predecessors
func (b *Block) Sealed() bool { return b.sealed }

// Successors returns the blocks this block's terminator may transfer to
func (b *Block) Successors() []*Block {
	if b.Terminator == nil {
		return nil
	}
	return b.Terminator.GetSuccessors()
}

// Phis returns the phi instructions at the head of the block
func (b *Block) Phis() []*PhiInstruction {
	var phis []*PhiInstruction
	for _, inst := range b.Instructions {
		phi, ok := inst.(*PhiInstruction)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

// Function is one function body
type Function struct {
	Name       string
	Signature  Signature
	Externals  []*ExtFunc
	StackSlots []*StackSlot
	Entry      *Block
	Blocks     []*Block // layout order; Entry is first
}

// Instruction is implemented by every instruction in this package
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *Block
	IsTerminator() bool
	String() string

	replaceOperand(from, to *Value)
}

// Terminator ends a basic block
type Terminator interface {
	Instruction
	GetSuccessors() []*Block
}

// BinaryOp names an integer arithmetic operation
type BinaryOp string

const (
	OpIadd BinaryOp = "iadd"
	OpIsub BinaryOp = "isub"
)

// ConvOp names a pointer/integer reinterpretation
type ConvOp string

const (
	OpPtrToInt ConvOp = "ptrtoint"
	OpIntToPtr ConvOp = "inttoptr"
)

type PhiInput struct {
	Pred  *Block
	Value *Value
}

type PhiInstruction struct {
	ID       int
	Result   *Value
	Block    *Block
	Variable Variable
	Inputs   []PhiInput

	removed bool
}

type ConstInstruction struct {
	ID     int
	Result *Value
	Block  *Block
	Imm    int64
}

type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *Block
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

type IcmpInstruction struct {
	ID     int
	Result *Value
	Block  *Block
	Cond   IntCC
	Left   *Value
	Right  *Value
}

type LoadInstruction struct {
	ID      int
	Result  *Value
	Block   *Block
	Flags   MemFlags
	Address *Value
	Offset  int32
}

type StoreInstruction struct {
	ID      int
	Block   *Block
	Flags   MemFlags
	Value   *Value
	Address *Value
	Offset  int32
}

type StackAddrInstruction struct {
	ID     int
	Result *Value
	Block  *Block
	Slot   *StackSlot
	Offset int32
}

type ConvInstruction struct {
	ID     int
	Result *Value
	Block  *Block
	Op     ConvOp
	Arg    *Value
}

type CallInstruction struct {
	ID      int
	Results []*Value
	Block   *Block
	Callee  *ExtFunc
	Args    []*Value
}

// Terminators

type ReturnTerminator struct {
	ID     int
	Block  *Block
	Values []*Value
}

type BranchTerminator struct {
	ID         int
	Block      *Block
	Condition  *Value
	TrueBlock  *Block
	FalseBlock *Block
}

type JumpTerminator struct {
	ID     int
	Block  *Block
	Target *Block
}

// Implementation of interfaces

func (p *PhiInstruction) GetID() int        { return p.ID }
func (p *PhiInstruction) GetResult() *Value { return p.Result }
func (p *PhiInstruction) GetOperands() []*Value {
	ops := make([]*Value, len(p.Inputs))
	for i, in := range p.Inputs {
		ops[i] = in.Value
	}
	return ops
}
func (p *PhiInstruction) GetBlock() *Block   { return p.Block }
func (p *PhiInstruction) IsTerminator() bool { return false }
func (p *PhiInstruction) replaceOperand(from, to *Value) {
	for i := range p.Inputs {
		if p.Inputs[i].Value == from {
			p.Inputs[i].Value = to
		}
	}
}

// InputFor returns the value flowing in from pred, or nil
func (p *PhiInstruction) InputFor(pred *Block) *Value {
	for _, in := range p.Inputs {
		if in.Pred == pred {
			return in.Value
		}
	}
	return nil
}

func (c *ConstInstruction) GetID() int            { return c.ID }
func (c *ConstInstruction) GetResult() *Value     { return c.Result }
func (c *ConstInstruction) GetOperands() []*Value { return nil }
func (c *ConstInstruction) GetBlock() *Block      { return c.Block }
func (c *ConstInstruction) IsTerminator() bool    { return false }
func (c *ConstInstruction) replaceOperand(_, _ *Value)   {}

func (b *BinaryInstruction) GetID() int            { return b.ID }
func (b *BinaryInstruction) GetResult() *Value     { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) GetBlock() *Block      { return b.Block }
func (b *BinaryInstruction) IsTerminator() bool    { return false }
func (b *BinaryInstruction) replaceOperand(from, to *Value) {
	b.Left = replace(b.Left, from, to)
	b.Right = replace(b.Right, from, to)
}

func (c *IcmpInstruction) GetID() int            { return c.ID }
func (c *IcmpInstruction) GetResult() *Value     { return c.Result }
func (c *IcmpInstruction) GetOperands() []*Value { return []*Value{c.Left, c.Right} }
func (c *IcmpInstruction) GetBlock() *Block      { return c.Block }
func (c *IcmpInstruction) IsTerminator() bool    { return false }
func (c *IcmpInstruction) replaceOperand(from, to *Value) {
	c.Left = replace(c.Left, from, to)
	c.Right = replace(c.Right, from, to)
}

func (l *LoadInstruction) GetID() int            { return l.ID }
func (l *LoadInstruction) GetResult() *Value     { return l.Result }
func (l *LoadInstruction) GetOperands() []*Value { return []*Value{l.Address} }
func (l *LoadInstruction) GetBlock() *Block      { return l.Block }
func (l *LoadInstruction) IsTerminator() bool    { return false }
func (l *LoadInstruction) replaceOperand(from, to *Value) {
	l.Address = replace(l.Address, from, to)
}

func (s *StoreInstruction) GetID() int            { return s.ID }
func (s *StoreInstruction) GetResult() *Value     { return nil }
func (s *StoreInstruction) GetOperands() []*Value { return []*Value{s.Value, s.Address} }
func (s *StoreInstruction) GetBlock() *Block      { return s.Block }
func (s *StoreInstruction) IsTerminator() bool    { return false }
func (s *StoreInstruction) replaceOperand(from, to *Value) {
	s.Value = replace(s.Value, from, to)
	s.Address = replace(s.Address, from, to)
}

func (s *StackAddrInstruction) GetID() int            { return s.ID }
func (s *StackAddrInstruction) GetResult() *Value     { return s.Result }
func (s *StackAddrInstruction) GetOperands() []*Value { return nil }
func (s *StackAddrInstruction) GetBlock() *Block      { return s.Block }
func (s *StackAddrInstruction) IsTerminator() bool    { return false }
func (s *StackAddrInstruction) replaceOperand(_, _ *Value) {}

func (c *ConvInstruction) GetID() int            { return c.ID }
func (c *ConvInstruction) GetResult() *Value     { return c.Result }
func (c *ConvInstruction) GetOperands() []*Value { return []*Value{c.Arg} }
func (c *ConvInstruction) GetBlock() *Block      { return c.Block }
func (c *ConvInstruction) IsTerminator() bool    { return false }
func (c *ConvInstruction) replaceOperand(from, to *Value) {
	c.Arg = replace(c.Arg, from, to)
}

func (c *CallInstruction) GetID() int { return c.ID }
func (c *CallInstruction) GetResult() *Value {
	if len(c.Results) == 0 {
		return nil
	}
	return c.Results[0]
}
func (c *CallInstruction) GetOperands() []*Value { return c.Args }
func (c *CallInstruction) GetBlock() *Block      { return c.Block }
func (c *CallInstruction) IsTerminator() bool    { return false }
func (c *CallInstruction) replaceOperand(from, to *Value) {
	for i := range c.Args {
		c.Args[i] = replace(c.Args[i], from, to)
	}
}

// Terminator implementations

func (r *ReturnTerminator) GetID() int              { return r.ID }
func (r *ReturnTerminator) GetResult() *Value       { return nil }
func (r *ReturnTerminator) GetOperands() []*Value   { return r.Values }
func (r *ReturnTerminator) GetBlock() *Block        { return r.Block }
func (r *ReturnTerminator) IsTerminator() bool      { return true }
func (r *ReturnTerminator) GetSuccessors() []*Block { return nil }
func (r *ReturnTerminator) replaceOperand(from, to *Value) {
	for i := range r.Values {
		r.Values[i] = replace(r.Values[i], from, to)
	}
}

func (b *BranchTerminator) GetID() int            { return b.ID }
func (b *BranchTerminator) GetResult() *Value     { return nil }
func (b *BranchTerminator) GetOperands() []*Value { return []*Value{b.Condition} }
func (b *BranchTerminator) GetBlock() *Block      { return b.Block }
func (b *BranchTerminator) IsTerminator() bool    { return true }
func (b *BranchTerminator) GetSuccessors() []*Block {
	return []*Block{b.TrueBlock, b.FalseBlock}
}
func (b *BranchTerminator) replaceOperand(from, to *Value) {
	b.Condition = replace(b.Condition, from, to)
}

func (j *JumpTerminator) GetID() int              { return j.ID }
func (j *JumpTerminator) GetResult() *Value       { return nil }
func (j *JumpTerminator) GetOperands() []*Value   { return nil }
func (j *JumpTerminator) GetBlock() *Block        { return j.Block }
func (j *JumpTerminator) IsTerminator() bool      { return true }
func (j *JumpTerminator) GetSuccessors() []*Block { return []*Block{j.Target} }
func (j *JumpTerminator) replaceOperand(_, _ *Value) {}

func replace(v, from, to *Value) *Value {
	if v == from {
		return to
	}
	return v
}
