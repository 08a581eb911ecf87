package session

import (
	"fmt"

	"github.com/vsariola/scrawl"
)

const DefaultMaxUndo = 128

type (
	// History is a linear undo/redo history of edits. Entries before the
	// cursor are undoable, entries after it redoable. The timeline it
	// manages always equals the base timeline with the edits before the
	// cursor applied in order.
	History struct {
		base    *scrawl.Timeline
		entries []historyEntry
		cursor  int
		maxUndo int
	}

	historyEntry struct {
		edit, inverse scrawl.Edit
		// clock times at which the edit began and ended, restored on undo
		// and redo
		start, end scrawl.Time
	}
)

// NewHistory starts a history whose base is a copy of tl. When more than
// maxUndo entries exist, the oldest are folded into the base.
func NewHistory(tl *scrawl.Timeline, maxUndo int) *History {
	if maxUndo <= 0 {
		maxUndo = DefaultMaxUndo
	}
	return &History{base: tl.Copy(), maxUndo: maxUndo}
}

// Do applies edit to tl and records it, discarding anything redoable.
func (h *History) Do(tl *scrawl.Timeline, edit scrawl.Edit, start, end scrawl.Time) error {
	inv, err := tl.Apply(edit)
	if err != nil {
		return err
	}
	h.push(historyEntry{edit: edit, inverse: inv, start: start, end: end})
	return nil
}

func (h *History) push(e historyEntry) {
	h.entries = append(h.entries[:h.cursor], e)
	h.cursor++
	for len(h.entries) > h.maxUndo {
		// the base plus the entries before the cursor is the live timeline,
		// where this edit applied
		if _, err := h.base.Apply(h.entries[0].edit); err != nil {
			panic(fmt.Errorf("history base diverged from the timeline: %w", err))
		}
		h.entries[0] = historyEntry{}
		h.entries = h.entries[1:]
		h.cursor--
	}
}

// Undo reverts the last edit and returns the clock time at which it began.
func (h *History) Undo(tl *scrawl.Timeline) (scrawl.Time, error) {
	if h.cursor == 0 {
		return 0, scrawl.ErrNothingToUndo
	}
	e := &h.entries[h.cursor-1]
	redo, err := tl.Apply(e.inverse)
	if err != nil {
		return 0, fmt.Errorf("undo failed: %w", err)
	}
	e.edit = redo
	h.cursor--
	return e.start, nil
}

// Redo re-applies the next edit and returns the clock time at which it
// ended.
func (h *History) Redo(tl *scrawl.Timeline) (scrawl.Time, error) {
	if h.cursor == len(h.entries) {
		return 0, scrawl.ErrNothingToRedo
	}
	e := &h.entries[h.cursor]
	inv, err := tl.Apply(e.edit)
	if err != nil {
		return 0, fmt.Errorf("redo failed: %w", err)
	}
	e.inverse = inv
	h.cursor++
	return e.end, nil
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }

func (h *History) Cursor() int { return h.cursor }

func (h *History) Len() int { return len(h.entries) }

// Replay builds a fresh timeline from the base and the undoable edits.
func (h *History) Replay() (*scrawl.Timeline, error) {
	tl := h.base.Copy()
	for i, e := range h.entries[:h.cursor] {
		if _, err := tl.Apply(e.edit); err != nil {
			return nil, fmt.Errorf("replaying edit %d: %w", i, err)
		}
	}
	return tl, nil
}
