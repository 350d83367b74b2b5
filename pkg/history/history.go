// Package history implements linear undo/redo over graph snapshots.
//
// A History holds an ordered stack of snapshots and a cursor into it. It has
// exactly two ways to write a snapshot:
//
//   - Record creates a new undoable step. Everything after the cursor is
//     discarded first (linear history, no branches).
//   - Amend overwrites the snapshot under the cursor in place. The stack does not
//     grow and redo entries are kept. Generated content rides on the current
//     step this way: it survives undo/redo across that step, but is lost together
//     with the step if the user undoes past it and then records something new.
//
// History is a value. Every method returns a new History and never writes into
// the receiver's backing array.
package history

import (
	"slices"

	"github.com/aretw0/intheflow/pkg/graph"
)

// Snapshot is an immutable capture of the canvas graph at one history position.
type Snapshot = graph.Graph

// History is the snapshot stack plus its cursor.
// The zero value is not usable; use New.
type History struct {
	stack  []Snapshot
	cursor int
}

// New returns a history containing a single empty snapshot, cursor at 0.
func New() History {
	return NewFrom(graph.Empty())
}

// NewFrom returns a history whose only step is initial.
func NewFrom(initial Snapshot) History {
	return History{stack: []Snapshot{initial}}
}

// Cursor returns the index of the current snapshot.
func (h History) Cursor() int { return h.cursor }

// Len returns the number of snapshots in the stack.
func (h History) Len() int { return len(h.stack) }

// Current returns the snapshot under the cursor.
func (h History) Current() Snapshot {
	if len(h.stack) == 0 {
		return graph.Empty()
	}
	return h.stack[h.cursor]
}

// At returns the snapshot at index i.
func (h History) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(h.stack) {
		return Snapshot{}, false
	}
	return h.stack[i], true
}

// CanUndo reports whether Undo would move the cursor.
func (h History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (h History) CanRedo() bool { return h.cursor < len(h.stack)-1 }

// Record truncates the stack after the cursor, appends s and moves the cursor onto it.
func (h History) Record(s Snapshot) History {
	h = h.ensure()
	stack := make([]Snapshot, h.cursor+1, h.cursor+2)
	copy(stack, h.stack[:h.cursor+1])
	stack = append(stack, s)
	return History{stack: stack, cursor: len(stack) - 1}
}

// Amend replaces the snapshot under the cursor with s. The stack length and
// every entry after the cursor are preserved.
func (h History) Amend(s Snapshot) History {
	h = h.ensure()
	stack := slices.Clone(h.stack)
	stack[h.cursor] = s
	return History{stack: stack, cursor: h.cursor}
}

// Undo moves the cursor back one step and returns the snapshot now current.
// At the initial position it is a no-op and ok is false.
func (h History) Undo() (next History, s Snapshot, ok bool) {
	if !h.CanUndo() {
		return h, h.Current(), false
	}
	h.cursor--
	return h, h.stack[h.cursor], true
}

// Redo moves the cursor forward one step and returns the snapshot now current.
// At the head it is a no-op and ok is false.
func (h History) Redo() (next History, s Snapshot, ok bool) {
	if !h.CanRedo() {
		return h, h.Current(), false
	}
	h.cursor++
	return h, h.stack[h.cursor], true
}

func (h History) ensure() History {
	if len(h.stack) == 0 {
		return New()
	}
	return h
}
