package scrawl

import (
	"fmt"
	"slices"
	"sort"
)

type (
	StrokeID int

	// Point is a position on the canvas. The canvas is one unit wide; its
	// height depends on the aspect ratio.
	Point struct {
		X float32 `yaml:"x"`
		Y float32 `yaml:"y"`
	}

	// Sample is one point of a stroke. Offset is relative to the stroke's
	// Start and is non-decreasing within a stroke.
	Sample struct {
		Point    `yaml:",inline"`
		Pressure float32 `yaml:"p"`
		Offset   Diff    `yaml:"t"`
	}

	// Color is a non-premultiplied RGBA color.
	Color [4]uint8

	// FadeEffect makes a stroke stay fully visible for Pause after it is
	// ended, then fade out linearly during Fade.
	FadeEffect struct {
		Pause Diff `yaml:"pause"`
		Fade  Diff `yaml:"fade"`
	}

	Style struct {
		Color     Color       `yaml:"color,flow"`
		Thickness float32     `yaml:"thickness"`
		Fade      *FadeEffect `yaml:"fade,omitempty"`
	}

	// Stroke is one continuous ink mark. It is visible at t iff
	// Start <= t < End.
	Stroke struct {
		ID      StrokeID `yaml:"id"`
		Start   Time     `yaml:"start"`
		End     Time     `yaml:"end"`
		Style   Style    `yaml:"style"`
		Open    bool     `yaml:"open,omitempty"`
		Samples []Sample `yaml:"samples,flow"`
	}
)

var Black = Color{0, 0, 0, 255}

func (s *Stroke) VisibleAt(t Time) bool { return s.Start <= t && t < s.End }

// Live reports whether the stroke is visible at any time.
func (s *Stroke) Live() bool { return s.Start < s.End }

// LastSampleTime returns the timeline time of the last sample, or Start if
// the stroke has no samples.
func (s *Stroke) LastSampleTime() Time {
	if len(s.Samples) == 0 {
		return s.Start
	}
	return s.Start.Add(s.Samples[len(s.Samples)-1].Offset)
}

// RevealedAt returns the prefix of the samples that have been drawn by time
// t. The returned slice aliases the stroke and must not be modified.
func (s *Stroke) RevealedAt(t Time) []Sample {
	if t < s.Start {
		return nil
	}
	off := t.Sub(s.Start)
	n := sort.Search(len(s.Samples), func(i int) bool { return s.Samples[i].Offset > off })
	return s.Samples[:n:n]
}

func (s *Stroke) Copy() Stroke {
	ret := *s
	ret.Samples = slices.Clone(s.Samples)
	if s.Style.Fade != nil {
		f := *s.Style.Fade
		ret.Style.Fade = &f
	}
	return ret
}

func (s *Stroke) Equal(o *Stroke) bool {
	if s.ID != o.ID || s.Start != o.Start || s.End != o.End || s.Open != o.Open {
		return false
	}
	if !s.Style.Equal(o.Style) {
		return false
	}
	return slices.Equal(s.Samples, o.Samples)
}

func (s Style) Equal(o Style) bool {
	if s.Color != o.Color || s.Thickness != o.Thickness {
		return false
	}
	if (s.Fade == nil) != (o.Fade == nil) {
		return false
	}
	return s.Fade == nil || *s.Fade == *o.Fade
}

// checkOffsets verifies that samples continue monotonically after prev.
func checkOffsets(prev Diff, samples []Sample) error {
	for i, smp := range samples {
		if smp.Offset < prev {
			return &SampleError{Index: i, Offset: smp.Offset, Prev: prev}
		}
		prev = smp.Offset
	}
	return nil
}

// SampleError describes a stroke sample rejected for being out of order.
type SampleError struct {
	Index        int
	Offset, Prev Diff
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("%v: sample %d has offset %d, previous %d", ErrOutOfOrderSample, e.Index, e.Offset, e.Prev)
}

func (e *SampleError) Unwrap() error { return ErrOutOfOrderSample }
