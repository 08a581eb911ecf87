package session_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/session"
)

func TestHistoryFoldsOldEntries(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	h := session.NewHistory(tl, 2)
	for i := range 4 {
		st := scrawl.Stroke{ID: scrawl.StrokeID(i), Start: scrawl.Time(i), End: scrawl.Forever, Style: pen}
		if err := h.Do(tl, scrawl.AppendStroke{Stroke: st}, st.Start, st.Start); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if h.Len() != 2 {
		t.Fatalf("history holds %d entries, expected 2", h.Len())
	}
	for range 2 {
		if _, err := h.Undo(tl); err != nil {
			t.Fatalf("Undo: %v", err)
		}
	}
	if _, err := h.Undo(tl); !errors.Is(err, scrawl.ErrNothingToUndo) {
		t.Fatalf("undo past the limit: got %v, expected ErrNothingToUndo", err)
	}
	if n := tl.Curves().Len(); n != 2 {
		t.Fatalf("%d strokes after undoing everything, expected the 2 folded ones", n)
	}
	replayed, err := h.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !replayed.Equal(tl) {
		t.Fatalf("replayed history differs from the timeline")
	}
}

func TestRedoLostAfterNewEdit(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	h := session.NewHistory(tl, 0)
	for i := range 2 {
		st := scrawl.Stroke{ID: scrawl.StrokeID(i), End: scrawl.Forever, Style: pen}
		if err := h.Do(tl, scrawl.AppendStroke{Stroke: st}, 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h.Undo(tl); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatalf("nothing to redo after undo")
	}
	st := scrawl.Stroke{ID: tl.Curves().NextID(), End: scrawl.Forever, Style: pen}
	if err := h.Do(tl, scrawl.AppendStroke{Stroke: st}, 0, 0); err != nil {
		t.Fatal(err)
	}
	if h.CanRedo() {
		t.Fatalf("redo survived a new edit")
	}
	if st.ID != 2 {
		t.Fatalf("stroke id %d was reused", st.ID)
	}
}

// FuzzHistory runs random edit, undo and redo sequences and checks that the
// timeline always equals the replay of the history.
func FuzzHistory(f *testing.F) {
	f.Add([]byte{0, 1, 1, 3, 5, 2, 4, 6, 6, 0, 7, 5, 5})
	f.Add([]byte{0, 0, 0, 2, 3, 3, 4, 5, 5, 5, 6, 6})
	f.Fuzz(func(t *testing.T, slice []byte) {
		reader := bytes.NewReader(slice)
		tl := scrawl.NewTimeline(48000)
		h := session.NewHistory(tl, 8)
		now := scrawl.Time(0)
		for m, err := binary.ReadUvarint(reader); err == nil; m, err = binary.ReadUvarint(reader) {
			now += scrawl.Time(m % 7 * 1000)
			var e scrawl.Edit
			last := scrawl.StrokeID(tl.Curves().NextID() - 1)
			switch m % 8 {
			case 0:
				e = scrawl.AppendStroke{Stroke: scrawl.Stroke{ID: tl.Curves().NextID(), Start: now, End: scrawl.Forever, Style: pen, Open: true}}
			case 1:
				e = scrawl.ExtendStroke{ID: last, Samples: []scrawl.Sample{{Offset: scrawl.Diff(m)}}}
			case 2:
				e = scrawl.TruncateStroke{ID: scrawl.StrokeID(m % 3), At: now}
			case 3:
				e = scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: tl.Audio().End(), Samples: make([]int16, 1+m%64)}}
			case 4:
				e = tl.TruncateFrom(now / 2)
			case 5:
				if _, err := h.Undo(tl); err != nil && !errors.Is(err, scrawl.ErrNothingToUndo) {
					t.Fatalf("Undo: %v", err)
				}
			case 6:
				if _, err := h.Redo(tl); err != nil && !errors.Is(err, scrawl.ErrNothingToRedo) {
					t.Fatalf("Redo: %v", err)
				}
			case 7:
				e = scrawl.AddMarker{Marker: scrawl.Marker{ID: tl.NextMarkerID(), Kind: scrawl.SpeedMarker, Time: now, Rate: scrawl.Slow}}
			}
			if e != nil {
				before := tl.Copy()
				if err := h.Do(tl, e, now, now); err != nil && !tl.Equal(before) {
					t.Fatalf("failed %T left partial changes: %v", e, err)
				}
			}
			replayed, err := h.Replay()
			if err != nil {
				t.Fatalf("Replay: %v", err)
			}
			if !replayed.Equal(tl) {
				t.Fatalf("timeline differs from the replayed history")
			}
		}
		for h.CanUndo() {
			if _, err := h.Undo(tl); err != nil {
				t.Fatalf("Undo: %v", err)
			}
		}
		replayed, _ := h.Replay()
		if !replayed.Equal(tl) {
			t.Fatalf("undoing everything did not return to the base")
		}
	})
}
