package scrawl

import (
	"fmt"
	"slices"
)

type (
	// Edit is an immutable description of one reversible mutation of a
	// Timeline. Applying an edit returns the edit that undoes it.
	Edit interface {
		apply(tl *Timeline) (Edit, error)
	}

	AppendStroke struct{ Stroke Stroke }
	// RemoveStroke removes the most recently appended stroke.
	RemoveStroke struct{ ID StrokeID }

	ExtendStroke struct {
		ID      StrokeID
		Samples []Sample
	}
	// TrimStroke removes the last N samples of an open stroke.
	TrimStroke struct {
		ID StrokeID
		N  int
	}

	EndStroke    struct{ ID StrokeID }
	ReopenStroke struct{ ID StrokeID }

	// TruncateStroke sets the visibility end of a stroke. Truncating to
	// Forever makes a stroke visible again.
	TruncateStroke struct {
		ID StrokeID
		At Time
	}

	AppendChunk   struct{ Chunk Chunk }
	UnappendChunk struct {
		Start Time
		Len   int
	}

	TruncateAudio struct{ At Time }
	RestoreAudio  struct{ Spans []AudioSpan }

	AddMarker    struct{ Marker Marker }
	RemoveMarker struct{ ID MarkerID }

	// Group applies its edits in order as one unit. If any member fails, the
	// members already applied are reverted.
	Group []Edit
)

func (e AppendStroke) apply(tl *Timeline) (Edit, error) {
	if err := tl.curves.begin(e.Stroke); err != nil {
		return nil, err
	}
	return RemoveStroke{e.Stroke.ID}, nil
}

func (e RemoveStroke) apply(tl *Timeline) (Edit, error) {
	for _, m := range tl.markers.markers {
		if m.Kind == FadeMarker && m.Stroke == e.ID {
			return nil, fmt.Errorf("%w: stroke %d still has fade marker %d", ErrInvalidState, e.ID, m.ID)
		}
	}
	s, err := tl.curves.remove(e.ID)
	if err != nil {
		return nil, err
	}
	return AppendStroke{s}, nil
}

func (e ExtendStroke) apply(tl *Timeline) (Edit, error) {
	if err := tl.curves.extend(e.ID, e.Samples); err != nil {
		return nil, err
	}
	return TrimStroke{e.ID, len(e.Samples)}, nil
}

func (e TrimStroke) apply(tl *Timeline) (Edit, error) {
	removed, err := tl.curves.trim(e.ID, e.N)
	if err != nil {
		return nil, err
	}
	return ExtendStroke{e.ID, removed}, nil
}

func (e EndStroke) apply(tl *Timeline) (Edit, error) {
	if err := tl.curves.setOpen(e.ID, false); err != nil {
		return nil, err
	}
	return ReopenStroke(e), nil
}

func (e ReopenStroke) apply(tl *Timeline) (Edit, error) {
	if err := tl.curves.setOpen(e.ID, true); err != nil {
		return nil, err
	}
	return EndStroke(e), nil
}

func (e TruncateStroke) apply(tl *Timeline) (Edit, error) {
	prev, err := tl.curves.truncate(e.ID, e.At)
	if err != nil {
		return nil, err
	}
	return TruncateStroke{e.ID, prev}, nil
}

func (e AppendChunk) apply(tl *Timeline) (Edit, error) {
	if err := tl.audio.appendChunk(e.Chunk); err != nil {
		return nil, err
	}
	return UnappendChunk{e.Chunk.Start, len(e.Chunk.Samples)}, nil
}

func (e UnappendChunk) apply(tl *Timeline) (Edit, error) {
	c, err := tl.audio.unappendChunk(e.Start, e.Len)
	if err != nil {
		return nil, err
	}
	return AppendChunk{c}, nil
}

func (e TruncateAudio) apply(tl *Timeline) (Edit, error) {
	return RestoreAudio{tl.audio.truncateAt(e.At)}, nil
}

func (e RestoreAudio) apply(tl *Timeline) (Edit, error) {
	prev, err := tl.audio.restore(e.Spans)
	if err != nil {
		return nil, err
	}
	return RestoreAudio{prev}, nil
}

func (e AddMarker) apply(tl *Timeline) (Edit, error) {
	if err := tl.markers.validate(e.Marker, &tl.curves); err != nil {
		return nil, err
	}
	if err := tl.markers.add(e.Marker); err != nil {
		return nil, err
	}
	return RemoveMarker{e.Marker.ID}, nil
}

func (e RemoveMarker) apply(tl *Timeline) (Edit, error) {
	m, err := tl.markers.remove(e.ID)
	if err != nil {
		return nil, err
	}
	return AddMarker{m}, nil
}

func (g Group) apply(tl *Timeline) (Edit, error) {
	inverses := make(Group, 0, len(g))
	for i, e := range g {
		inv, err := e.apply(tl)
		if err != nil {
			// an inverse applied right after its edit always succeeds;
			// failing here means an edit returned a wrong inverse
			for j := len(inverses) - 1; j >= 0; j-- {
				if _, rerr := inverses[j].apply(tl); rerr != nil {
					panic(fmt.Errorf("could not roll back edit %d of group: %w", j, rerr))
				}
			}
			return nil, fmt.Errorf("edit %d of %d: %w", i+1, len(g), err)
		}
		inverses = append(inverses, inv)
	}
	slices.Reverse(inverses)
	return inverses, nil
}

// Compact merges the edits of a recording into an equivalent, shorter
// group: samples and the end of a stroke begun within the edits are folded
// into its append, and contiguous audio chunks are joined.
func Compact(edits []Edit, sampleRate int) Group {
	ret := make(Group, 0, len(edits))
	begun := map[StrokeID]int{}
	strokes := map[int]*Stroke{}
	lastChunk := -1
	for _, e := range flatten(edits) {
		switch e := e.(type) {
		case AppendStroke:
			s := e.Stroke.Copy()
			begun[s.ID] = len(ret)
			strokes[len(ret)] = &s
			ret = append(ret, e)
			continue
		case ExtendStroke:
			if i, ok := begun[e.ID]; ok {
				strokes[i].Samples = append(strokes[i].Samples, e.Samples...)
				continue
			}
		case EndStroke:
			if i, ok := begun[e.ID]; ok {
				strokes[i].Open = false
				continue
			}
		case AppendChunk:
			if lastChunk >= 0 {
				prev := ret[lastChunk].(AppendChunk)
				end := prev.Chunk.Start.SampleIndex(sampleRate) + int64(len(prev.Chunk.Samples))
				if e.Chunk.Start.SampleIndex(sampleRate) == end {
					samples := make([]int16, 0, len(prev.Chunk.Samples)+len(e.Chunk.Samples))
					samples = append(append(samples, prev.Chunk.Samples...), e.Chunk.Samples...)
					ret[lastChunk] = AppendChunk{Chunk{Start: prev.Chunk.Start, Samples: samples}}
					continue
				}
			}
			lastChunk = len(ret)
			ret = append(ret, e)
			continue
		case TrimStroke:
			delete(begun, e.ID)
		case ReopenStroke:
			delete(begun, e.ID)
		case RemoveStroke:
			delete(begun, e.ID)
		case UnappendChunk, TruncateAudio, RestoreAudio:
			lastChunk = -1
		}
		ret = append(ret, e)
	}
	for i, s := range strokes {
		ret[i] = AppendStroke{*s}
	}
	return ret
}

func flatten(edits []Edit) []Edit {
	if !slices.ContainsFunc(edits, func(e Edit) bool { _, ok := e.(Group); return ok }) {
		return edits
	}
	var ret []Edit
	for _, e := range edits {
		if g, ok := e.(Group); ok {
			ret = append(ret, flatten(g)...)
			continue
		}
		ret = append(ret, e)
	}
	return ret
}
