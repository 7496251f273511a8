package ssa

import (
	"fmt"
	"strings"
)

// VerifierError is one structural problem found in a function
type VerifierError struct {
	Location string
	Message  string
}

func (e VerifierError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// VerifierErrors is every problem the verifier found
type VerifierErrors []VerifierError

func (es VerifierErrors) Error() string {
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return fmt.Sprintf("%d verifier error(s):\n%s", len(es), strings.Join(lines, "\n"))
}

type defSite struct {
	block *Block
	index int
}

type verifier struct {
	fn      *Function
	errs    VerifierErrors
	inFunc  map[*Block]bool
	slots   map[*StackSlot]bool
	externs map[*ExtFunc]bool
	defs    map[*Value]defSite
	dom     *Dominators
}

// Verify checks that fn is well formed: every block is terminated, edges and
// predecessor lists agree, operand types fit their instructions, phis have
// one input per predecessor, calls match their callee and every use is
// dominated by its definition. It returns VerifierErrors on failure.
func Verify(fn *Function) error {
	v := &verifier{
		fn:      fn,
		inFunc:  make(map[*Block]bool),
		slots:   make(map[*StackSlot]bool),
		externs: make(map[*ExtFunc]bool),
		defs:    make(map[*Value]defSite),
	}
	v.run()
	if len(v.errs) > 0 {
		return v.errs
	}
	return nil
}

func (v *verifier) report(loc fmt.Stringer, format string, args ...interface{}) {
	v.errs = append(v.errs, VerifierError{Location: loc.String(), Message: fmt.Sprintf(format, args...)})
}

type funcLoc string

func (f funcLoc) String() string { return string(f) }

func (v *verifier) run() {
	fnLoc := funcLoc("function " + v.fn.Name)
	if v.fn.Entry == nil || len(v.fn.Blocks) == 0 {
		v.report(fnLoc, "function has no entry block")
		return
	}
	if v.fn.Blocks[0] != v.fn.Entry {
		v.report(fnLoc, "entry block %s is not first in the layout", v.fn.Entry)
	}
	if len(v.fn.Entry.Predecessors) > 0 {
		v.report(v.fn.Entry, "entry block has predecessors")
	}

	for _, b := range v.fn.Blocks {
		v.inFunc[b] = true
	}
	for _, s := range v.fn.StackSlots {
		v.slots[s] = true
	}
	for _, e := range v.fn.Externals {
		v.externs[e] = true
	}

	v.collectDefs()
	for _, b := range v.fn.Blocks {
		v.checkBlockShape(b)
	}
	if len(v.errs) > 0 {
		// Dominance is meaningless on a malformed graph
		return
	}

	v.dom = ComputeDominators(v.fn)
	for _, b := range v.fn.Blocks {
		for i, inst := range b.Instructions {
			v.checkInstruction(b, i, inst)
		}
		v.checkInstruction(b, len(b.Instructions), b.Terminator)
	}
}

func (v *verifier) collectDefs() {
	define := func(b *Block, i int, val *Value) {
		if val == nil {
			return
		}
		if prev, ok := v.defs[val]; ok {
			v.report(b, "%s is defined twice (also in %s)", val, prev.block)
			return
		}
		v.defs[val] = defSite{block: b, index: i}
	}

	for _, b := range v.fn.Blocks {
		for i, inst := range b.Instructions {
			if inst == nil {
				continue
			}
			if call, ok := inst.(*CallInstruction); ok {
				for _, r := range call.Results {
					define(b, i, r)
				}
				continue
			}
			define(b, i, inst.GetResult())
		}
	}
}

func (v *verifier) checkBlockShape(b *Block) {
	if b.Terminator == nil {
		v.report(b, "block is not terminated")
	} else if b.Terminator.GetBlock() != b {
		v.report(b, "terminator belongs to %s", b.Terminator.GetBlock())
	}

	seenNonPhi := false
	for _, inst := range b.Instructions {
		if inst == nil {
			v.report(b, "nil instruction")
			continue
		}
		if inst.IsTerminator() {
			v.report(b, "terminator %q in the middle of the block", inst)
		}
		if inst.GetBlock() != b {
			v.report(b, "%q belongs to %s", inst, inst.GetBlock())
		}
		if _, ok := inst.(*PhiInstruction); ok {
			if seenNonPhi {
				v.report(b, "phi %q after a non-phi instruction", inst)
			}
		} else {
			seenNonPhi = true
		}
	}

	for _, succ := range b.Successors() {
		if succ == nil || !v.inFunc[succ] {
			v.report(b, "branch to %s which is not in the function", succ)
			continue
		}
		if !containsBlock(succ.Predecessors, b) {
			v.report(b, "%s does not list %s as a predecessor", succ, b)
		}
	}
	for _, pred := range b.Predecessors {
		if !v.inFunc[pred] {
			v.report(b, "predecessor %s is not in the function", pred)
			continue
		}
		if !containsBlock(pred.Successors(), b) {
			v.report(b, "predecessor %s does not branch here", pred)
		}
	}
}

func (v *verifier) checkInstruction(b *Block, index int, inst Instruction) {
	for _, op := range inst.GetOperands() {
		if op == nil {
			v.report(b, "%q has a nil operand", inst)
			return
		}
		if _, ok := v.defs[op]; !ok {
			v.report(b, "%q uses %s which is never defined", inst, op)
			return
		}
	}

	switch i := inst.(type) {
	case *PhiInstruction:
		v.checkPhi(b, i)
		return
	case *ConstInstruction:
		if !i.Result.Type.IsInt() {
			v.report(b, "%q: constant must have an integer type", inst)
		}
	case *BinaryInstruction:
		if !i.Left.Type.IsInt() || i.Left.Type != i.Right.Type || i.Result.Type != i.Left.Type {
			v.report(b, "%q: operands must share one integer type (have %s, %s)", inst, i.Left.Type, i.Right.Type)
		}
	case *IcmpInstruction:
		if !i.Left.Type.IsInt() || i.Left.Type != i.Right.Type {
			v.report(b, "%q: operands must share one integer type (have %s, %s)", inst, i.Left.Type, i.Right.Type)
		}
		if i.Result.Type != I8 {
			v.report(b, "%q: comparison result must be i8", inst)
		}
	case *LoadInstruction:
		if i.Address.Type != Ptr {
			v.report(b, "%q: address must be a pointer, not %s", inst, i.Address.Type)
		}
		if i.Result.Type.Bytes() == 0 {
			v.report(b, "%q: cannot load %s", inst, i.Result.Type)
		}
	case *StoreInstruction:
		if i.Address.Type != Ptr {
			v.report(b, "%q: address must be a pointer, not %s", inst, i.Address.Type)
		}
	case *StackAddrInstruction:
		if !v.slots[i.Slot] {
			v.report(b, "%q: stack slot is not in the function", inst)
		} else if i.Offset < 0 || uint32(i.Offset) > i.Slot.Size {
			v.report(b, "%q: offset %d is outside %s", inst, i.Offset, i.Slot)
		}
		if i.Result.Type != Ptr {
			v.report(b, "%q: stack address must be a pointer", inst)
		}
	case *ConvInstruction:
		switch i.Op {
		case OpPtrToInt:
			if i.Arg.Type != Ptr || i.Result.Type != I64 {
				v.report(b, "%q: ptrtoint converts ptr to i64", inst)
			}
		case OpIntToPtr:
			if i.Arg.Type != I64 || i.Result.Type != Ptr {
				v.report(b, "%q: inttoptr converts i64 to ptr", inst)
			}
		}
	case *CallInstruction:
		v.checkCall(b, i)
	case *ReturnTerminator:
		v.checkTypes(b, inst, "return value", i.Values, v.fn.Signature.Returns)
	case *BranchTerminator:
		if !i.Condition.Type.IsInt() {
			v.report(b, "%q: condition must be an integer", inst)
		}
	}

	// Every operand must be available here
	for _, op := range inst.GetOperands() {
		site := v.defs[op]
		if !v.dom.Reachable(b) {
			continue
		}
		if site.block == b {
			if site.index >= index {
				v.report(b, "%q uses %s before its definition", inst, op)
			}
			continue
		}
		if !v.dom.Dominates(site.block, b) {
			v.report(b, "%q uses %s from %s which does not dominate it", inst, op, site.block)
		}
	}
}

func (v *verifier) checkPhi(b *Block, phi *PhiInstruction) {
	if len(phi.Inputs) != len(b.Predecessors) {
		v.report(b, "%q has %d inputs for %d predecessors", phi, len(phi.Inputs), len(b.Predecessors))
	}

	for _, in := range phi.Inputs {
		if !containsBlock(b.Predecessors, in.Pred) {
			v.report(b, "%q has an input from %s which is not a predecessor", phi, in.Pred)
			continue
		}
		if in.Value.Type != phi.Result.Type {
			v.report(b, "%q: input %s has type %s", phi, in.Value, in.Value.Type)
		}
		site := v.defs[in.Value]
		if v.dom.Reachable(in.Pred) && !v.dom.Dominates(site.block, in.Pred) {
			v.report(b, "%q: %s is not available at the end of %s", phi, in.Value, in.Pred)
		}
	}
}

func (v *verifier) checkCall(b *Block, call *CallInstruction) {
	if call.Callee == nil || !v.externs[call.Callee] {
		v.report(b, "%q calls a function that is not declared", call)
		return
	}
	sig := call.Callee.Signature
	v.checkTypes(b, call, "argument", call.Args, sig.Params)
	v.checkTypes(b, call, "result", call.Results, sig.Returns)
}

func (v *verifier) checkTypes(b *Block, inst Instruction, what string, vals []*Value, want []Type) {
	if len(vals) != len(want) {
		v.report(b, "%q: expected %d %s(s), got %d", inst, len(want), what, len(vals))
		return
	}
	for i, val := range vals {
		if val.Type != want[i] {
			v.report(b, "%q: %s %d has type %s, want %s", inst, what, i, val.Type, want[i])
		}
	}
}

func containsBlock(blocks []*Block, target *Block) bool {
	for _, b := range blocks {
		if b == target {
			return true
		}
	}
	return false
}
