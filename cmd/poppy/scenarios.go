package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/engine"
	"github.com/sfkleach/poppy/internal/opcode"
	"github.com/sfkleach/poppy/internal/planter"
)

// scenario bundles one of §8's end-to-end programs with the label it is
// selected by on the command line and a one-line description for --help.
type scenario struct {
	name        string
	description string
	plant       func(e *engine.Engine)
	entry       string
}

var scenarios = []scenario{
	{
		name:        "double-store",
		description: "store 100 in a global, then decrement it through itself",
		plant:       plantDoubleStore,
		entry:       "main",
	},
	{
		name:        "doubler-call",
		description: "call a doubler procedure twice via CALL_GLOBAL",
		plant:       plantDoublerCall,
		entry:       "main",
	},
	{
		name:        "forward-branch",
		description: "a forward GOTO skips a dead branch after calling the doubler",
		plant:       plantForwardBranch,
		entry:       "main",
	},
	{
		name:        "overflow-trap",
		description: "ADD 1 to the largest Small and expect an overflow Mishap",
		plant:       plantOverflowTrap,
		entry:       "main",
	},
	{
		name:        "boolean-dispatch",
		description: "IFNOT branches on the canonical False cell",
		plant:       plantBooleanDispatch,
		entry:       "cond",
	},
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func plantDoubler(e *engine.Engine) {
	d := planter.New(e)
	d.PUSHS()
	d.ADD()
	d.RETURN()
	d.Global("doubler")
	if err := d.BuildAndBind("doubler"); err != nil {
		logrus.WithError(err).Fatal("failed to plant doubler")
	}
}

func plantDoubleStore(e *engine.Engine) {
	p := planter.New(e)
	p.Global("x")
	p.PUSHQ(100)
	p.POP_GLOBAL("x")
	p.PUSH_GLOBAL("x")
	p.PUSHQ(1)
	p.SUB()
	p.POP_GLOBAL("x")
	p.RETURN()
	p.Global("main")
	mustBuild(p, "main")
}

func plantDoublerCall(e *engine.Engine) {
	plantDoubler(e)

	p := planter.New(e)
	mustLocal(p, "x")
	p.PUSHQ(50)
	p.CALL_GLOBAL("doubler")
	p.CALL_GLOBAL("doubler")
	mustPopLocal(p, "x")
	mustPushLocal(p, "x")
	p.RETURN()
	p.Global("main")
	mustBuild(p, "main")
}

func plantForwardBranch(e *engine.Engine) {
	plantDoubler(e)

	p := planter.New(e)
	mustLocal(p, "x")
	skip := p.NewLabel()
	p.PUSHQ(50)
	p.CALL_GLOBAL("doubler")
	p.CALL_GLOBAL("doubler")
	mustPopLocal(p, "x")
	mustPushLocal(p, "x")
	p.GOTO(skip)
	p.PUSHQ(2)
	p.SUB()
	p.PUSHS()
	p.LABEL(skip)
	p.RETURN()
	p.Global("main")
	mustBuild(p, "main")
}

func plantOverflowTrap(e *engine.Engine) {
	p := planter.New(e)
	p.PUSHQ((1 << 60) - 1)
	p.PUSHQ(1)
	p.ADD()
	p.HALT()
	p.Global("main")
	mustBuild(p, "main")
}

// plantBooleanDispatch hand-plants its procedure instead of going through
// CodePlanter's mnemonic surface: the canonical False cell is not an int64
// PUSHQ can carry.
func plantBooleanDispatch(e *engine.Engine) {
	op := func(o opcode.Op) cell.Cell { return cell.Cell(uint64(o)) }
	instrs := []cell.Cell{
		op(opcode.PUSHQ), cell.FalseValue,
		op(opcode.IFNOT), cell.MakeI64(4),
		op(opcode.PUSHQ), cell.MakeSmall(1),
		op(opcode.HALT),
		op(opcode.PUSHQ), cell.MakeSmall(2),
		op(opcode.HALT),
	}
	keyIdx := rawProcedure(e, instrs, 0, nil)
	idx := e.DeclareGlobal("cond")
	e.Idents().ByIndex(idx).Value = cell.MakePtr(keyIdx)
}

func mustLocal(p *planter.CodePlanter, name string) {
	if err := p.Local(name); err != nil {
		logrus.WithError(err).Fatal("failed to declare local")
	}
}

func mustPushLocal(p *planter.CodePlanter, name string) {
	if err := p.PUSH_LOCAL(name); err != nil {
		logrus.WithError(err).Fatal("failed to reference local")
	}
}

func mustPopLocal(p *planter.CodePlanter, name string) {
	if err := p.POP_LOCAL(name); err != nil {
		logrus.WithError(err).Fatal("failed to reference local")
	}
}

func mustBuild(p *planter.CodePlanter, name string) {
	if err := p.BuildAndBind(name); err != nil {
		logrus.WithError(err).Fatal("failed to commit procedure")
	}
}

// reportValueStack prints the final value-stack contents left behind by a
// scenario, in push order.
func reportValueStack(e *engine.Engine) {
	roots := e.ValueStackRoots()
	if len(roots) == 0 {
		fmt.Println("value stack: (empty)")
		return
	}
	fmt.Print("value stack:")
	for _, r := range roots {
		fmt.Printf(" %s", (*r).String())
	}
	fmt.Println()
}

func reportGlobal(e *engine.Engine, name string) {
	idx, ok := e.Idents().Lookup(name)
	if !ok {
		fmt.Printf("global %s: (undeclared)\n", name)
		return
	}
	fmt.Printf("global %s = %s\n", name, e.Idents().ByIndex(idx).Value.String())
}
