package main

import (
	"github.com/sirupsen/logrus"

	"github.com/sfkleach/poppy/internal/builder"
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/engine"
)

// rawProcedure plants a procedure directly from a finished instruction
// stream, bypassing CodePlanter, for the handful of demo programs whose
// operands CodePlanter's mnemonic surface cannot express (the canonical
// True/False cells). It mirrors the header prelude CodePlanter.New plants
// by hand, then patches the QBlockOffset/Length cells once the body's
// final size is known.
func rawProcedure(e *engine.Engine, instrs []cell.Cell, numLocals int64, qOffsets []int) int {
	b := builder.New(e.Heap())

	b.AddCell(cell.MakeI64(0))
	b.AddCell(cell.MakeI64(0))
	b.AddCell(cell.MakeI64(0))
	b.AddKey(cell.ProcedureKeyValue)
	b.AddCell(cell.MakeU64(uint64(numLocals)))

	for _, c := range instrs {
		b.AddCell(c)
	}

	qStart := b.Size() - cell.KeyOffsetFromStart
	for _, off := range qOffsets {
		b.AddCell(cell.MakeU64(uint64(off)))
	}
	length := b.Size() - cell.KeyOffsetFromStart

	keyIdx, err := b.Object()
	if err != nil {
		logrus.WithError(err).Fatal("failed to plant raw procedure")
	}

	*e.Heap().At(keyIdx + cell.QBlockOffset) = cell.MakeSmall(int64(qStart))
	*e.Heap().At(keyIdx + cell.LengthOffset) = cell.MakeSmall(int64(length))
	return keyIdx
}
