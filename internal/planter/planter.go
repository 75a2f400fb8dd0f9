// Package planter implements CodePlanter (§3.2, §4.D): the two-pass
// assembler that turns a sequence of mnemonic calls into a procedure
// object on the heap, resolving global and local variable references and
// back-patching branch targets along the way.
package planter

import (
	"github.com/sfkleach/poppy/internal/builder"
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/engine"
	"github.com/sfkleach/poppy/internal/mishap"
	"github.com/sfkleach/poppy/internal/opcode"
	"github.com/sfkleach/poppy/internal/roots"
)

// CodePlanter assembles exactly one procedure object. Create a fresh
// instance per procedure; it plants the 5-cell header prelude immediately
// so PUSHQ/GOTO/etc. can be interleaved with Local/Global declarations in
// any order the caller likes, matching the source's single-pass planting
// style.
type CodePlanter struct {
	engine  *engine.Engine
	builder *builder.Builder

	procNamePH  builder.PlaceHolder
	qblockPH    builder.PlaceHolder
	lengthPH    builder.PlaceHolder
	numLocalsPH builder.PlaceHolder

	qOffsets []int

	locals      []string
	scopeLevel  int
	maxLevel    int
	localFixups []localFixup
	finalized   bool

	pinned *roots.Node
}

// localFixup remembers where a local-variable reference was planted
// (plantholder) and the 1-based stack position recorded at plant time, so
// Build can rewrite it to maxLevel-relative form once maxLevel is final.
type localFixup struct {
	ph       builder.PlaceHolder
	position int
}

// New starts assembling a new procedure against e's heap, planting the
// header prelude (ProcName, QBlockOffset, Length, the ProcedureKey itself,
// and NumLocals) as four placeholders and one committed key cell.
func New(e *engine.Engine) *CodePlanter {
	b := builder.New(e.Heap())
	p := &CodePlanter{engine: e, builder: b}

	b.AddCell(cell.MakeI64(0))
	p.procNamePH = b.PlaceHolderJustPlanted()

	b.AddCell(cell.MakeI64(0))
	p.qblockPH = b.PlaceHolderJustPlanted()

	b.AddCell(cell.MakeI64(0))
	p.lengthPH = b.PlaceHolderJustPlanted()

	b.AddKey(cell.ProcedureKeyValue)

	b.AddCell(cell.MakeI64(0))
	p.numLocalsPH = b.PlaceHolderJustPlanted()

	return p
}

// NewLabel returns a label that can be planted with GOTO/IFSO/IFNOT before
// or after it is fixed in place with LABEL.
func (p *CodePlanter) NewLabel() *Label {
	return NewLabel(p.builder)
}

func (p *CodePlanter) addInstruction(op opcode.Op) {
	p.builder.AddCell(cell.Cell(uint64(op)))
}

// addDataQ plants a quoted tagged-pointer operand and records its
// key-relative offset in the pending Q-block, so the collector knows to
// treat this cell as a root when it later scans the procedure.
func (p *CodePlanter) addDataQ(c cell.Cell) {
	p.qOffsets = append(p.qOffsets, p.builder.Size()-cell.KeyOffsetFromStart)
	p.builder.AddCell(c)
}

func (p *CodePlanter) addRawUInt(n uint64) {
	p.builder.AddCell(cell.MakeU64(n))
}

// addGlobal emits inst followed by name's identifier-table index,
// declaring name lazily (with a warning) if it was never explicitly
// declared via Global.
func (p *CodePlanter) addGlobal(name string, inst opcode.Op) {
	p.addInstruction(inst)
	idx := p.engine.Idents().Resolve(name)
	p.addRawUInt(uint64(idx))
}

// tryAddLocal emits inst followed by name's 1-based stack position if name
// names a local currently in scope, recording a fixup so Build can convert
// that position to a locals-array offset once maxLevel is known. It
// reports whether name was found.
func (p *CodePlanter) tryAddLocal(name string, inst opcode.Op) bool {
	for i := len(p.locals) - 1; i >= 0; i-- {
		if p.locals[i] == name {
			position := i + 1
			p.addInstruction(inst)
			p.addRawUInt(uint64(position))
			ph := p.builder.PlaceHolderJustPlanted()
			p.localFixups = append(p.localFixups, localFixup{ph: ph, position: position})
			return true
		}
	}
	return false
}

func (p *CodePlanter) addLocal(name string, inst opcode.Op) error {
	if !p.tryAddLocal(name, inst) {
		return mishap.New(mishap.UnknownLocal, "Unknown local variable").Culprit("Name", name)
	}
	return nil
}

func (p *CodePlanter) addLocalOrGlobal(name string, instLocal, instGlobal opcode.Op) {
	if p.tryAddLocal(name, instLocal) {
		return
	}
	p.addGlobal(name, instGlobal)
}

// local declares name as a new local variable in the current scope. It
// fails with DuplicateLocal if name is already declared at this scope
// level.
func (p *CodePlanter) local(name string) error {
	for i := p.scopeLevel; i < len(p.locals); i++ {
		if p.locals[i] == name {
			return mishap.New(mishap.DuplicateLocal, "Local already declared in this scope").
				Culprit("Name", name)
		}
	}
	p.locals = append(p.locals, name)
	if len(p.locals) > p.maxLevel {
		p.maxLevel = len(p.locals)
	}
	return nil
}

func (p *CodePlanter) global(name string) {
	p.engine.DeclareGlobal(name)
}

// --- Public mnemonic surface ------------------------------------------

func (p *CodePlanter) PUSHQ(n int64) { p.addInstruction(opcode.PUSHQ); p.addDataQ(cell.MakeSmall(n)) }
func (p *CodePlanter) PUSHS()        { p.addInstruction(opcode.PUSHS) }
func (p *CodePlanter) ADD()          { p.addInstruction(opcode.ADD) }
func (p *CodePlanter) SUB()          { p.addInstruction(opcode.SUB) }
func (p *CodePlanter) MUL()          { p.addInstruction(opcode.MUL) }
func (p *CodePlanter) RETURN()       { p.addInstruction(opcode.RETURN) }
func (p *CodePlanter) HALT()         { p.addInstruction(opcode.HALT) }

func (p *CodePlanter) CALL_GLOBAL(name string) { p.addGlobal(name, opcode.CALL_GLOBAL) }
func (p *CodePlanter) CALL_LOCAL(name string) error {
	return p.addLocal(name, opcode.CALL_LOCAL)
}
func (p *CodePlanter) CALL(name string) { p.addLocalOrGlobal(name, opcode.CALL_LOCAL, opcode.CALL_GLOBAL) }

func (p *CodePlanter) PUSH_GLOBAL(name string) { p.addGlobal(name, opcode.PUSH_GLOBAL) }
func (p *CodePlanter) PUSH_LOCAL(name string) error {
	return p.addLocal(name, opcode.PUSH_LOCAL)
}
func (p *CodePlanter) PUSH(name string) { p.addLocalOrGlobal(name, opcode.PUSH_LOCAL, opcode.PUSH_GLOBAL) }

func (p *CodePlanter) POP_GLOBAL(name string) { p.addGlobal(name, opcode.POP_GLOBAL) }
func (p *CodePlanter) POP_LOCAL(name string) error {
	return p.addLocal(name, opcode.POP_LOCAL)
}
func (p *CodePlanter) POP(name string) { p.addLocalOrGlobal(name, opcode.POP_LOCAL, opcode.POP_GLOBAL) }

func (p *CodePlanter) GOTO(l *Label) {
	p.addInstruction(opcode.GOTO)
	l.plantLabel()
}

func (p *CodePlanter) IFSO(l *Label) {
	p.addInstruction(opcode.IFSO)
	l.plantLabel()
}

func (p *CodePlanter) IFNOT(l *Label) {
	p.addInstruction(opcode.IFNOT)
	l.plantLabel()
}

func (p *CodePlanter) LABEL(l *Label) { l.setLabel() }

// Local declares name as a new local variable, occupying the next stack
// slot, in the current scope.
func (p *CodePlanter) Local(name string) error { return p.local(name) }

// Global declares name as a global identifier (idempotent, warns on
// redeclaration — §6.1).
func (p *CodePlanter) Global(name string) { p.global(name) }

// --- Finalisation -------------------------------------------------------

// finalizeHeader back-patches the Q-block offset, the object length, the
// declared local count, and every recorded local-variable reference, once
// all instructions have been planted and maxLevel is known. It runs at
// most once per planter: Build retries a failed commit by calling
// Builder.Object again on the already-finalised staging list (§4.C), and
// re-running this would double-append the Q-block.
func (p *CodePlanter) finalizeHeader() {
	if p.finalized {
		return
	}
	p.finalized = true

	qStart := p.builder.Size() - cell.KeyOffsetFromStart
	p.qblockPH.Set(cell.MakeSmall(int64(qStart)))
	for _, off := range p.qOffsets {
		p.addRawUInt(uint64(off))
	}
	length := p.builder.Size() - cell.KeyOffsetFromStart
	p.lengthPH.Set(cell.MakeSmall(int64(length)))
	p.numLocalsPH.Set(cell.MakeI64(int64(p.maxLevel)))

	for _, fx := range p.localFixups {
		fx.ph.Set(cell.MakeU64(uint64(p.maxLevel - fx.position)))
	}
}

// Build commits the assembled procedure to the heap and pins it in the
// engine's extra-roots registry (so it survives a collection triggered by
// planting the very next procedure) until the caller releases the
// returned root. It returns the absolute heap index of the procedure's
// Key cell.
//
// On HeapOverflow nothing is pinned and the already-finalised staging list
// is kept: drive a collection and call Build again to retry the same
// commit without re-planting the procedure.
func (p *CodePlanter) Build() (int, *roots.Node, error) {
	p.finalizeHeader()
	keyIdx, err := p.builder.Object()
	if err != nil {
		return 0, nil, err
	}
	node := p.engine.Roots().Pin(cell.MakePtr(keyIdx))
	return keyIdx, node, nil
}

// BuildAndBind commits the assembled procedure, interning name as its
// ProcName cell (§3.2 offset -3), and stores it directly into name's
// identifier slot. Callers are expected to have already called Global(name)
// (matching the source's .global(name) then .buildAndBind(name) usage);
// BuildAndBind looks the identifier up rather than calling DeclareGlobal
// itself, so it never raises a spurious redeclaration warning when that
// convention is followed.
func (p *CodePlanter) BuildAndBind(name string) error {
	p.procNamePH.Set(cell.MakeSymbol(p.engine.Symbols().Intern(name)))
	keyIdx, node, err := p.Build()
	if err != nil {
		return err
	}
	idx := p.engine.Idents().Resolve(name)
	p.engine.Idents().ByIndex(idx).Value = cell.MakePtr(keyIdx)
	node.Release()
	return nil
}
