package ssa

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for functions
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new function printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the text form of a function
func Print(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("    ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printFunction(fn *Function) {
	p.writeLine("function %%%s%s {", fn.Name, fn.Signature)
	p.indent++
	for _, slot := range fn.StackSlots {
		p.writeLine("%s = explicit_slot %d", slot, slot.Size)
	}
	for _, ext := range fn.Externals {
		p.writeLine("fn%d = %%%s%s", ext.ID, ext.Name, ext.Signature)
	}
	p.indent--

	for _, block := range fn.Blocks {
		p.writeLine("")
		p.printBlock(block)
	}
	p.writeLine("}")
}

func (p *Printer) printBlock(block *Block) {
	p.writeLine("%s:", block)
	p.indent++
	for _, inst := range block.Instructions {
		p.writeLine("%s", inst)
	}
	if block.Terminator != nil {
		p.writeLine("%s", block.Terminator)
	}
	p.indent--
}

func joinValues(values []*Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func memOperand(flags MemFlags, addr *Value, offset int32) string {
	var sb strings.Builder
	if s := flags.String(); s != "" {
		sb.WriteString(s)
		sb.WriteString(" ")
	}
	sb.WriteString(addr.String())
	if offset != 0 {
		sb.WriteString(fmt.Sprintf("%+d", offset))
	}
	return sb.String()
}

func (p *PhiInstruction) String() string {
	inputs := make([]string, len(p.Inputs))
	for i, in := range p.Inputs {
		inputs[i] = fmt.Sprintf("[%s: %s]", in.Pred, in.Value)
	}
	return fmt.Sprintf("%s = phi.%s %s", p.Result, p.Result.Type, strings.Join(inputs, ", "))
}

func (c *ConstInstruction) String() string {
	return fmt.Sprintf("%s = iconst.%s %d", c.Result, c.Result.Type, c.Imm)
}

func (b *BinaryInstruction) String() string {
	return fmt.Sprintf("%s = %s.%s %s, %s", b.Result, b.Op, b.Result.Type, b.Left, b.Right)
}

func (c *IcmpInstruction) String() string {
	return fmt.Sprintf("%s = icmp.%s %s, %s", c.Result, c.Cond, c.Left, c.Right)
}

func (l *LoadInstruction) String() string {
	return fmt.Sprintf("%s = load.%s %s", l.Result, l.Result.Type, memOperand(l.Flags, l.Address, l.Offset))
}

func (s *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s", s.Value, memOperand(s.Flags, s.Address, s.Offset))
}

func (s *StackAddrInstruction) String() string {
	if s.Offset != 0 {
		return fmt.Sprintf("%s = stack_addr.%s %s%+d", s.Result, s.Result.Type, s.Slot, s.Offset)
	}
	return fmt.Sprintf("%s = stack_addr.%s %s", s.Result, s.Result.Type, s.Slot)
}

func (c *ConvInstruction) String() string {
	return fmt.Sprintf("%s = %s.%s %s", c.Result, c.Op, c.Result.Type, c.Arg)
}

func (c *CallInstruction) String() string {
	call := fmt.Sprintf("call fn%d(%s)", c.Callee.ID, joinValues(c.Args))
	if len(c.Results) == 0 {
		return call
	}
	return fmt.Sprintf("%s = %s", joinValues(c.Results), call)
}

func (r *ReturnTerminator) String() string {
	if len(r.Values) == 0 {
		return "return"
	}
	return "return " + joinValues(r.Values)
}

func (b *BranchTerminator) String() string {
	return fmt.Sprintf("brif %s, %s, %s", b.Condition, b.TrueBlock, b.FalseBlock)
}

func (j *JumpTerminator) String() string {
	return fmt.Sprintf("jump %s", j.Target)
}
