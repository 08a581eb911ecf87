package scrawl

import (
	"fmt"
	"iter"
	"slices"
)

// CurveStore holds the strokes of a timeline in id order. Stroke ids are
// allocated from a high-water mark that survives removals, so an id is never
// handed out twice.
type CurveStore struct {
	strokes []Stroke
	nextID  StrokeID
}

func (c *CurveStore) Len() int { return len(c.strokes) }

// NextID returns the id the next new stroke should use.
func (c *CurveStore) NextID() StrokeID { return c.nextID }

// Stroke returns the stroke with the given id. The returned pointer is valid
// until the store is next mutated.
func (c *CurveStore) Stroke(id StrokeID) (*Stroke, bool) {
	i, ok := c.index(id)
	if !ok {
		return nil, false
	}
	return &c.strokes[i], true
}

// All iterates over every stroke in id order, including ones that are never
// visible.
func (c *CurveStore) All() iter.Seq[*Stroke] {
	return func(yield func(*Stroke) bool) {
		for i := range c.strokes {
			if !yield(&c.strokes[i]) {
				return
			}
		}
	}
}

// VisibleAt iterates over the ids of strokes visible at t in creation order.
// The sequence is lazy and can be ranged over any number of times.
func (c *CurveStore) VisibleAt(t Time) iter.Seq[StrokeID] {
	return func(yield func(StrokeID) bool) {
		for i := range c.strokes {
			s := &c.strokes[i]
			if s.Start > t {
				if s.Live() {
					// live strokes are sorted by start, nothing after this
					// can be visible
					return
				}
				continue
			}
			if t < s.End {
				if !yield(s.ID) {
					return
				}
			}
		}
	}
}

// End returns the maximum time at which a stroke is visible.
func (c *CurveStore) End() Time {
	var ret Time
	for i := range c.strokes {
		s := &c.strokes[i]
		if !s.Live() {
			continue
		}
		e := s.End
		if e == Forever {
			e = s.LastSampleTime()
		}
		ret = max(ret, e)
	}
	return ret
}

func (c *CurveStore) index(id StrokeID) (int, bool) {
	return slices.BinarySearchFunc(c.strokes, id, func(s Stroke, id StrokeID) int { return int(s.ID) - int(id) })
}

func (c *CurveStore) lastLiveStart() (Time, bool) {
	for i := len(c.strokes) - 1; i >= 0; i-- {
		if c.strokes[i].Live() {
			return c.strokes[i].Start, true
		}
	}
	return 0, false
}

func (c *CurveStore) begin(s Stroke) error {
	if n := len(c.strokes); n > 0 && c.strokes[n-1].ID >= s.ID {
		return fmt.Errorf("%w: stroke id %d not after %d", ErrInvalidState, s.ID, c.strokes[n-1].ID)
	}
	if s.End < s.Start {
		return fmt.Errorf("%w: stroke %d ends at %v before its start %v", ErrInvalidRange, s.ID, s.End, s.Start)
	}
	if start, ok := c.lastLiveStart(); ok && s.Live() && s.Start < start {
		return fmt.Errorf("%w: stroke %d starts at %v before a visible stroke starting at %v", ErrInvalidRange, s.ID, s.Start, start)
	}
	if err := checkOffsets(0, s.Samples); err != nil {
		return err
	}
	c.strokes = append(c.strokes, s.Copy())
	c.nextID = max(c.nextID, s.ID+1)
	return nil
}

// remove deletes the most recently added stroke; only the last stroke can be
// removed, as removal is always the inverse of an append.
func (c *CurveStore) remove(id StrokeID) (Stroke, error) {
	n := len(c.strokes)
	if n == 0 || c.strokes[n-1].ID != id {
		return Stroke{}, fmt.Errorf("%w: stroke %d is not the last stroke", ErrUnknownStroke, id)
	}
	s := c.strokes[n-1]
	c.strokes = c.strokes[:n-1]
	return s, nil
}

func (c *CurveStore) extend(id StrokeID, samples []Sample) error {
	s, ok := c.Stroke(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStroke, id)
	}
	if !s.Open {
		return fmt.Errorf("%w: %d", ErrStrokeClosed, id)
	}
	prev := Diff(0)
	if len(s.Samples) > 0 {
		prev = s.Samples[len(s.Samples)-1].Offset
	}
	if err := checkOffsets(prev, samples); err != nil {
		return err
	}
	s.Samples = append(s.Samples, samples...)
	return nil
}

func (c *CurveStore) trim(id StrokeID, n int) ([]Sample, error) {
	s, ok := c.Stroke(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStroke, id)
	}
	if n < 0 || n > len(s.Samples) {
		return nil, fmt.Errorf("%w: cannot trim %d samples from stroke %d", ErrInvalidRange, n, id)
	}
	k := len(s.Samples) - n
	removed := slices.Clone(s.Samples[k:])
	s.Samples = s.Samples[:k:k]
	return removed, nil
}

func (c *CurveStore) setOpen(id StrokeID, open bool) error {
	s, ok := c.Stroke(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStroke, id)
	}
	if s.Open == open {
		if !open {
			return fmt.Errorf("%w: %d", ErrStrokeClosed, id)
		}
		return fmt.Errorf("%w: stroke %d is already open", ErrInvalidState, id)
	}
	s.Open = open
	return nil
}

// truncate sets the visibility end of a stroke and returns the previous one.
func (c *CurveStore) truncate(id StrokeID, t Time) (Time, error) {
	s, ok := c.Stroke(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStroke, id)
	}
	t = max(t, s.Start)
	prev := s.End
	if s.Live() && t > s.Start {
		s.End = t
		return prev, nil
	}
	// reviving a hidden stroke must not break the start ordering of live
	// strokes that were appended after it was hidden
	if t > s.Start {
		for j := range c.strokes {
			o := &c.strokes[j]
			if o.ID > id && o.Live() && o.Start < s.Start {
				return 0, fmt.Errorf("%w: stroke %d cannot be shown again before stroke %d", ErrInvalidRange, id, o.ID)
			}
		}
	}
	s.End = t
	return prev, nil
}

func (c *CurveStore) clone() CurveStore {
	ret := CurveStore{strokes: make([]Stroke, len(c.strokes)), nextID: c.nextID}
	for i := range c.strokes {
		ret.strokes[i] = c.strokes[i].Copy()
	}
	return ret
}

func (c *CurveStore) equal(o *CurveStore) bool {
	return slices.EqualFunc(c.strokes, o.strokes, func(a, b Stroke) bool { return a.Equal(&b) })
}
