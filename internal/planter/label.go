package planter

import (
	"github.com/sfkleach/poppy/internal/builder"
	"github.com/sfkleach/poppy/internal/cell"
)

// Label supports forward and backward branches uniformly via a two-pass
// scheme (§4.D): every reference planted before the label is set records
// an absolute staging index; setLabel back-patches each one to the
// PC-relative delta the interpreter will apply. A reference planted after
// the label is already set is resolved immediately to its delta.
type Label struct {
	builder      *builder.Builder
	placeHolders []builder.PlaceHolder
	offset       *int
}

// NewLabel returns a label usable with GOTO/IFSO/IFNOT and eventually
// fixed in place with LABEL.
func NewLabel(b *builder.Builder) *Label {
	return &Label{builder: b}
}

// plantLabel appends the delta cell a branch instruction needs: an
// unresolved forward reference (patched later by setLabel) or, once the
// label has already been set, the delta computed immediately.
func (l *Label) plantLabel() {
	here := l.builder.Size()
	if l.offset == nil {
		l.builder.AddCell(cell.MakeI64(int64(here)))
		l.placeHolders = append(l.placeHolders, l.builder.PlaceHolderJustPlanted())
	} else {
		delta := int64(*l.offset - here)
		l.builder.AddCell(cell.MakeI64(delta))
	}
}

// setLabel fixes the label at the current staging position and
// back-patches every reference planted so far.
func (l *Label) setLabel() {
	here := l.builder.Size()
	for _, p := range l.placeHolders {
		there := p.Get().I64()
		p.Set(cell.MakeI64(int64(here) - there))
	}
	l.placeHolders = nil
	offset := here
	l.offset = &offset
}
