package cell

// ProcedureLayout describes the fixed cell offsets of a procedure object
// relative to its Key cell, which always sits at offset 0. See §3.2: the
// header prefix exists so the entry pointer used at runtime lands directly
// on the ProcedureKey, and so the GC can walk from key to tail without
// knowing anything about instruction contents.
const (
	ProcNameOffset      = -3
	QBlockOffset        = -2
	LengthOffset        = -1
	KeyOffset           = 0
	NumLocalsOffset     = 1
	InstructionsOffset  = 2

	// HeaderSize is the number of cells from ProcNameOffset through
	// NumLocalsOffset inclusive, i.e. everything before the first
	// instruction cell.
	HeaderSize = 5

	// KeyOffsetFromStart is the key cell's position within a procedure's
	// own staged cell list (ProcName, QBlock, Length, Key, NumLocals).
	// start = key - KeyOffsetFromStart recovers the first header cell.
	KeyOffsetFromStart = 3
)
