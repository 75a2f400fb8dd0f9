package main

import (
	"github.com/sfkleach/poppy/internal/engine"
	"github.com/sfkleach/poppy/internal/planter"
)

// plantSetter builds the one procedure gc-stress keeps alive across every
// collection: a global assignment whose survival demonstrates that the
// collector only reclaims what the throwaway procedures planted after it.
func plantSetter(e *engine.Engine) {
	p := planter.New(e)
	p.Global("x")
	p.PUSHQ(7)
	p.POP_GLOBAL("x")
	p.RETURN()
	p.Global("setx")
	mustBuild(p, "setx")
}

// plantThrowaway plants and immediately releases a single-instruction
// procedure nobody ever calls, to soak up heap space. It returns the same
// HeapOverflow the builder would on a genuine allocation failure so the
// caller can drive a collection and retry.
func plantThrowaway(e *engine.Engine) error {
	p := planter.New(e)
	p.HALT()
	_, node, err := p.Build()
	if err != nil {
		return err
	}
	node.Release()
	return nil
}
