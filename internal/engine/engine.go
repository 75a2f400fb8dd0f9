// Package engine implements the threaded-dispatch interpreter (§4.G) and
// the surrounding runtime state it owns: the heap, identifier table,
// symbol table and extra-roots registry (§5's "shareable Runtime record").
//
// Computed goto is not available in Go. Per the design notes (§4.G, §9)
// the interpreter instead dispatches through a dense handler-function
// table indexed by opcode.Op, populated once by initialise — the same
// two-phase "build the dispatch table, then let planters emit code"
// structure as the source, just realised with an index instead of a label
// address.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/gc"
	"github.com/sfkleach/poppy/internal/heap"
	"github.com/sfkleach/poppy/internal/ident"
	"github.com/sfkleach/poppy/internal/mishap"
	"github.com/sfkleach/poppy/internal/opcode"
	"github.com/sfkleach/poppy/internal/roots"
	"github.com/sfkleach/poppy/internal/symbol"
)

// exitPC is the synthetic return address of the outermost call frame. The
// source keeps a one-cell "exit_code" object holding a genuine threaded
// HALT address and jumps to it on the outermost RETURN; since this engine
// dispatches through a handler table rather than raw code addresses, an
// out-of-band sentinel return address serves the same purpose without
// needing a dispatchable dummy object (see DESIGN.md).
const exitPC = -1

type handlerFunc func(*Engine) (cont bool, err error)

// callFrame records what RETURN needs to unwind one call: the caller's
// procedure (a GC root, scanned like any other tagged pointer), the
// instruction offset to resume at, and the locals length to truncate back
// to, which discards the frame's own locals.
// ReturnPC is a plain instruction index, never a Cell — the source packs
// it into the same union member as ordinary values, but it is never a
// tagged pointer and must never be mistaken for one during root scanning.
type callFrame struct {
	PrevProcedure cell.Cell
	ReturnPC      int
	LocalsBase    int
}

// Engine owns the whole runtime: the heap, the identifier table, the
// symbol table, the extra-roots registry, and the live interpreter state.
type Engine struct {
	heap    *heap.Heap
	idents  *ident.Table
	symbols *symbol.Table
	xroots  *roots.Registry
	log     *logrus.Logger

	handlers [opcode.Count]handlerFunc

	valueStack []cell.Cell
	callFrames []callFrame
	locals     []cell.Cell

	currentProc cell.Cell
	pc          int
}

// New creates an engine with a heap of 2*halfCells cells and wires up its
// dispatch table. log defaults to logrus.StandardLogger() if nil.
func New(halfCells int, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		heap:    heap.New(halfCells),
		idents:  ident.NewTable(log),
		symbols: symbol.NewTable(),
		xroots:  roots.NewRegistry(),
		log:     log,
	}
	e.initialise()
	return e
}

// initialise populates the opcode -> handler table. It runs once, from
// New; planters only ever see opcode.Op values, never handler functions.
func (e *Engine) initialise() {
	e.handlers[opcode.PUSHQ] = (*Engine).opPushq
	e.handlers[opcode.PUSHS] = (*Engine).opPushs
	e.handlers[opcode.PUSH_GLOBAL] = (*Engine).opPushGlobal
	e.handlers[opcode.PUSH_LOCAL] = (*Engine).opPushLocal
	e.handlers[opcode.POP_GLOBAL] = (*Engine).opPopGlobal
	e.handlers[opcode.POP_LOCAL] = (*Engine).opPopLocal
	e.handlers[opcode.PASSIGN] = (*Engine).opPassign
	e.handlers[opcode.ADD] = (*Engine).opAdd
	e.handlers[opcode.SUB] = (*Engine).opSub
	e.handlers[opcode.MUL] = (*Engine).opMul
	e.handlers[opcode.IFSO] = (*Engine).opIfso
	e.handlers[opcode.IFNOT] = (*Engine).opIfnot
	e.handlers[opcode.GOTO] = (*Engine).opGoto
	e.handlers[opcode.CALL_GLOBAL] = (*Engine).opCallGlobal
	e.handlers[opcode.CALL_LOCAL] = (*Engine).opCallLocal
	e.handlers[opcode.RETURN] = (*Engine).opReturn
	e.handlers[opcode.HALT] = (*Engine).opHalt
}

func (e *Engine) Heap() *heap.Heap          { return e.heap }
func (e *Engine) Idents() *ident.Table      { return e.idents }
func (e *Engine) Symbols() *symbol.Table    { return e.symbols }
func (e *Engine) Roots() *roots.Registry    { return e.xroots }
func (e *Engine) Logger() *logrus.Logger    { return e.log }

// DeclareGlobal is idempotent with a warning on redeclaration (§6.1).
func (e *Engine) DeclareGlobal(name string) int {
	return e.idents.DeclareGlobal(name)
}

// Collect drives one stop-the-world collection.
func (e *Engine) Collect() error {
	return gc.Collect(e.heap, e, e.log)
}

// Run looks up name and, if its value is a procedure, executes it to
// completion. It fails with NotCallable if the name is undeclared or its
// value is not even a tagged pointer, or NotAProcedure if it is a pointer
// but not to a ProcedureKey (§6.1, §7).
func (e *Engine) Run(name string) error {
	idx, ok := e.idents.Lookup(name)
	if !ok {
		return mishap.New(mishap.NotCallable, "Unknown global").Culprit("Name", name)
	}
	return e.call(e.idents.ByIndex(idx).Value)
}

// isCallable is the cheap check CALL/Engine::run make before attempting to
// enter a value: is it even a reference to a heap object at all. It does
// not look at the pointee's key — that is enterProcedure's job, and its
// failure (NotAProcedure) is a distinct Kind from this one (NotCallable).
func (e *Engine) isCallable(c cell.Cell) bool {
	return c.IsTaggedPtr()
}

func (e *Engine) call(proc cell.Cell) error {
	if !e.isCallable(proc) {
		return mishap.New(mishap.NotCallable, "Value is not a procedure")
	}
	e.callFrames = append(e.callFrames, callFrame{
		PrevProcedure: cell.Cell(0),
		ReturnPC:      exitPC,
		LocalsBase:    len(e.locals),
	})
	if err := e.enterProcedure(proc); err != nil {
		return err
	}
	return e.dispatchLoop()
}

// enterProcedure is Engine entry proper (§7): it dereferences proc's key
// cell and requires it to name a procedure, failing with NotAProcedure if
// not, then sets up the new frame's locals and pc.
func (e *Engine) enterProcedure(proc cell.Cell) error {
	key := proc.Deref()
	if !e.heap.At(key).IsProcedureKey() {
		return mishap.New(mishap.NotAProcedure, "Entry point is not a procedure").
			Culprit("Key", e.heap.At(key).String())
	}
	numLocals := int(e.heap.At(key + cell.NumLocalsOffset).U64())
	e.currentProc = proc
	e.locals = append(e.locals, make([]cell.Cell, numLocals)...)
	e.pc = key + cell.InstructionsOffset
	return nil
}

func (e *Engine) dispatchLoop() error {
	for {
		op := opcode.Op(e.heap.At(e.pc).U64())
		e.pc++
		handler := e.handlers[op]
		cont, err := handler(e)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

func (e *Engine) pop() cell.Cell {
	v := e.valueStack[len(e.valueStack)-1]
	e.valueStack = e.valueStack[:len(e.valueStack)-1]
	return v
}

func (e *Engine) commonCall(callee cell.Cell) (bool, error) {
	if !e.isCallable(callee) {
		return false, mishap.New(mishap.NotCallable, "Callee is not a procedure")
	}
	e.callFrames = append(e.callFrames, callFrame{
		PrevProcedure: e.currentProc,
		ReturnPC:      e.pc,
		LocalsBase:    len(e.locals),
	})
	if err := e.enterProcedure(callee); err != nil {
		return false, err
	}
	return true, nil
}

// --- Root scanning for gc.RootSource ---------------------------------

func (e *Engine) ValueStackRoots() []*cell.Cell {
	out := make([]*cell.Cell, len(e.valueStack))
	for i := range e.valueStack {
		out[i] = &e.valueStack[i]
	}
	return out
}

func (e *Engine) CallStackRoots() []*cell.Cell {
	out := make([]*cell.Cell, 0, len(e.callFrames)+len(e.locals)+1)
	out = append(out, &e.currentProc)
	for i := range e.callFrames {
		out = append(out, &e.callFrames[i].PrevProcedure)
	}
	for i := range e.locals {
		out = append(out, &e.locals[i])
	}
	return out
}

func (e *Engine) IdentifierRoots() []*cell.Cell { return e.idents.Roots() }
func (e *Engine) ExtraRoots() []*cell.Cell      { return e.xroots.Roots() }
