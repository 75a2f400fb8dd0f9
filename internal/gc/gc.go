// Package gc implements the collector (§4.H): a two-space Cheney-style
// copying collector driven entirely by the metadata procedures carry
// themselves (the Q-block) rather than any language-level tracing.
package gc

import (
	"github.com/sirupsen/logrus"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/heap"
	"github.com/sfkleach/poppy/internal/mishap"
)

// RootSource presents every group of roots the collector must scan:
// the value stack, the live parts of the call stack (current and
// previous-frame procedure pointers plus local slots — excluding return
// addresses, which are plain instruction offsets, not cells), every
// identifier's value, and every node in the extra-roots registry.
//
// Each returned pointer aliases the caller's live memory directly, so the
// collector rewrites roots in place with no separate write-back pass.
type RootSource interface {
	ValueStackRoots() []*cell.Cell
	CallStackRoots() []*cell.Cell
	IdentifierRoots() []*cell.Cell
	ExtraRoots() []*cell.Cell
}

// Collect drives one full stop-the-world collection: swap semispaces,
// forward every root, then drain the grey queue of newly-copied objects,
// applying the same forwarding rule to every cell their Q-block names.
func Collect(h *heap.Heap, rs RootSource, log *logrus.Logger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	usedBefore, capacity := h.Occupancy()

	h.Swap()

	rootGroups := [][]*cell.Cell{
		rs.ValueStackRoots(),
		rs.CallStackRoots(),
		rs.IdentifierRoots(),
		rs.ExtraRoots(),
	}
	for _, group := range rootGroups {
		for _, root := range group {
			if err := forward(h, root); err != nil {
				return err
			}
		}
	}

	for {
		start, end, ok := h.PopEnqueuedObject()
		if !ok {
			break
		}
		if err := walkQBlock(h, start, end); err != nil {
			return err
		}
	}

	usedAfter, _ := h.Occupancy()
	log.WithFields(logrus.Fields{
		"before_cells": usedBefore,
		"after_cells":  usedAfter,
		"capacity":     capacity,
	}).Info("garbage collection complete")

	return nil
}

// forward evacuates the object root points at, if it has not already been
// evacuated, and rewrites root to the (possibly new) location. Non-pointer
// cells are left untouched — the Q-block's bitmask is advisory, this check
// is authoritative (see the open question on PUSHQ's operand in §9).
func forward(h *heap.Heap, root *cell.Cell) error {
	c := *root
	if !c.IsTaggedPtr() {
		return nil
	}
	target := c.Deref()
	keyCell := *h.At(target)
	if keyCell.IsForwarded() {
		*root = cell.MakePtr(keyCell.Deref())
		return nil
	}

	start, end, _, err := h.ObjectBounds(target)
	if err != nil {
		return err
	}
	newStart, err := h.CopyRange(start, end)
	if err != nil {
		return err
	}
	newKey := newStart + (target - start)
	h.SetForwarded(target, newKey)
	*root = cell.MakePtr(newKey)
	return nil
}

// walkQBlock visits every cell a copied procedure's Q-block names and
// forwards it if it turns out to be a live pointer.
func walkQBlock(h *heap.Heap, start, end int) error {
	key := start + cell.KeyOffsetFromStart
	if !h.At(key).IsKey() {
		return mishap.New(mishap.InvalidKey, "Copied object has no key cell").Culprit("Start", start)
	}
	qOffset := h.At(key + cell.QBlockOffset).GetSmall()
	length := h.At(key + cell.LengthOffset).GetSmall()
	for i := qOffset; i < length; i++ {
		qCell := h.At(key + int(i))
		rel := int64(qCell.U64())
		target := h.At(key + int(rel))
		if err := forward(h, target); err != nil {
			return err
		}
	}
	return nil
}
