package engine

import (
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/mishap"
)

func (e *Engine) opPushq() (bool, error) {
	v := *e.heap.At(e.pc)
	e.pc++
	e.valueStack = append(e.valueStack, v)
	return true, nil
}

func (e *Engine) opPushs() (bool, error) {
	top := e.valueStack[len(e.valueStack)-1]
	e.valueStack = append(e.valueStack, top)
	return true, nil
}

func (e *Engine) opPushGlobal() (bool, error) {
	idx := int(e.heap.At(e.pc).U64())
	e.pc++
	e.valueStack = append(e.valueStack, e.idents.ByIndex(idx).Value)
	return true, nil
}

func (e *Engine) opPopGlobal() (bool, error) {
	idx := int(e.heap.At(e.pc).U64())
	e.pc++
	e.idents.ByIndex(idx).Value = e.pop()
	return true, nil
}

func (e *Engine) opPushLocal() (bool, error) {
	n := int(e.heap.At(e.pc).U64())
	e.pc++
	e.valueStack = append(e.valueStack, e.locals[len(e.locals)-1-n])
	return true, nil
}

func (e *Engine) opPopLocal() (bool, error) {
	n := int(e.heap.At(e.pc).U64())
	e.pc++
	e.locals[len(e.locals)-1-n] = e.pop()
	return true, nil
}

// opPassign writes a quoted procedure cell directly into an identifier.
// No CodePlanter mnemonic emits this opcode — like the source it is a
// defined opcode with engine and collector support but no public planting
// surface yet (see DESIGN.md).
func (e *Engine) opPassign() (bool, error) {
	idx := int(e.heap.At(e.pc).U64())
	e.pc++
	proc := *e.heap.At(e.pc)
	e.pc++
	e.idents.ByIndex(idx).Value = proc
	return true, nil
}

func (e *Engine) binOp(op func(a, b int64) (int64, bool)) (bool, error) {
	b := e.pop()
	a := e.pop()
	if !a.IsSmall() || !b.IsSmall() {
		return false, mishap.New(mishap.NotSmall, "Operand is not a Small integer")
	}
	result, ok := op(a.I64(), b.I64())
	if !ok {
		return false, mishap.New(mishap.Overflow, "Arithmetic overflow").
			Culprit("Arg #1", a.GetSmall()).
			Culprit("Arg #2", b.GetSmall())
	}
	e.valueStack = append(e.valueStack, cell.MakeI64(result))
	return true, nil
}

// opAdd/opSub work on the raw tagged bit pattern directly: since Small's
// tag is 0b000, adding or subtracting two Small cells' encoded forms
// yields the correctly-tagged encoded sum or difference with no shifting.
func (e *Engine) opAdd() (bool, error) {
	return e.binOp(func(a, b int64) (int64, bool) {
		sum := a + b
		overflowed := ((a ^ sum) & (b ^ sum)) < 0
		return sum, !overflowed
	})
}

func (e *Engine) opSub() (bool, error) {
	return e.binOp(func(a, b int64) (int64, bool) {
		diff := a - b
		overflowed := ((a ^ b) & (a ^ diff)) < 0
		return diff, !overflowed
	})
}

// opMul shifts one operand right by the tag width before multiplying, so
// the product carries exactly one copy of the tag bits instead of two.
func (e *Engine) opMul() (bool, error) {
	return e.binOp(func(a, b int64) (int64, bool) {
		shifted := a >> cell.TagWidth
		product := shifted * b
		if shifted != 0 && product/shifted != b {
			return 0, false
		}
		return product, true
	})
}

// opGoto/opIfso/opIfnot treat the delta cell's own position as the
// reference point: pc already sits on the delta cell on entry (the
// dispatch loop's generic pc++ has already run), so a taken branch is
// exactly pc += delta, landing on the labelled cell with no further
// adjustment; the untaken path just steps past the delta cell.
func (e *Engine) opGoto() (bool, error) {
	delta := e.heap.At(e.pc).I64()
	e.pc += int(delta)
	return true, nil
}

func (e *Engine) opIfso() (bool, error) {
	delta := e.heap.At(e.pc).I64()
	v := e.pop()
	if v.IsntFalse() {
		e.pc += int(delta)
	} else {
		e.pc++
	}
	return true, nil
}

func (e *Engine) opIfnot() (bool, error) {
	delta := e.heap.At(e.pc).I64()
	v := e.pop()
	if v.IsFalse() {
		e.pc += int(delta)
	} else {
		e.pc++
	}
	return true, nil
}

func (e *Engine) opCallGlobal() (bool, error) {
	idx := int(e.heap.At(e.pc).U64())
	e.pc++
	return e.commonCall(e.idents.ByIndex(idx).Value)
}

// opCallLocal fetches the callee from a local slot and falls straight
// through to the common call logic with pc already past the immediate —
// the resolved reading of the call-local/common-call ambiguity (§9).
func (e *Engine) opCallLocal() (bool, error) {
	n := int(e.heap.At(e.pc).U64())
	e.pc++
	return e.commonCall(e.locals[len(e.locals)-1-n])
}

func (e *Engine) opReturn() (bool, error) {
	frame := e.callFrames[len(e.callFrames)-1]
	e.callFrames = e.callFrames[:len(e.callFrames)-1]
	e.locals = e.locals[:frame.LocalsBase]
	if frame.ReturnPC == exitPC {
		return false, nil
	}
	e.currentProc = frame.PrevProcedure
	e.pc = frame.ReturnPC
	return true, nil
}

func (e *Engine) opHalt() (bool, error) {
	return false, nil
}
