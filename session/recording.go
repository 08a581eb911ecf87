package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vsariola/scrawl"
)

// BeginStroke starts a new open stroke at the current time.
func (s *Session) BeginStroke(style scrawl.Style) (scrawl.StrokeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return 0, fmt.Errorf("%w: begin stroke while %v", scrawl.ErrInvalidState, s.state)
	}
	id := s.timeline.Curves().NextID()
	st := scrawl.Stroke{ID: id, Start: s.clock.Now(), End: scrawl.Forever, Style: style, Open: true}
	if err := s.record(scrawl.AppendStroke{Stroke: st}); err != nil {
		return 0, err
	}
	s.open = append(s.open, id)
	return id, nil
}

// ExtendStroke appends samples to an open stroke. A rejected sample is
// dropped; the stroke keeps the samples it had.
func (s *Session) ExtendStroke(id scrawl.StrokeID, samples ...scrawl.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: extend stroke while %v", scrawl.ErrInvalidState, s.state)
	}
	return s.record(scrawl.ExtendStroke{ID: id, Samples: slices.Clone(samples)})
}

// AddPoint appends a pen sample taken now to an open stroke.
func (s *Session) AddPoint(id scrawl.StrokeID, p scrawl.Point, pressure float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: add point while %v", scrawl.ErrInvalidState, s.state)
	}
	st, ok := s.timeline.Stroke(id)
	if !ok {
		return fmt.Errorf("%w: %d", scrawl.ErrUnknownStroke, id)
	}
	smp := scrawl.Sample{Point: p, Pressure: pressure, Offset: s.clock.Now().Sub(st.Start)}
	return s.record(scrawl.ExtendStroke{ID: id, Samples: []scrawl.Sample{smp}})
}

// EndStroke closes an open stroke. If its style has a fade effect, the
// stroke fades out after the pause and disappears.
func (s *Session) EndStroke(id scrawl.StrokeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: end stroke while %v", scrawl.ErrInvalidState, s.state)
	}
	return s.endStroke(id)
}

// Erase hides a stroke from the current time on.
func (s *Session) Erase(id scrawl.StrokeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: erase while %v", scrawl.ErrInvalidState, s.state)
	}
	now := s.clock.Now()
	st, ok := s.timeline.Stroke(id)
	if !ok {
		return fmt.Errorf("%w: %d", scrawl.ErrUnknownStroke, id)
	}
	if !st.VisibleAt(now) {
		return fmt.Errorf("%w: stroke %d is not visible at %v", scrawl.ErrInvalidState, id, now)
	}
	edits := scrawl.Group{scrawl.TruncateStroke{ID: id, At: now}}
	if st.Open {
		edits = append(scrawl.Group{scrawl.EndStroke{ID: id}}, edits...)
	}
	if err := s.record(edits); err != nil {
		return err
	}
	s.open = slices.DeleteFunc(s.open, func(o scrawl.StrokeID) bool { return o == id })
	return nil
}

// Fade sets the opacity of a stroke to reach opacity at the current time.
func (s *Session) Fade(id scrawl.StrokeID, opacity float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: fade while %v", scrawl.ErrInvalidState, s.state)
	}
	m := scrawl.Marker{ID: s.timeline.NextMarkerID(), Kind: scrawl.FadeMarker, Time: s.clock.Now(), Stroke: id, Opacity: opacity}
	return s.record(scrawl.AddMarker{Marker: m})
}

func (s *Session) endStroke(id scrawl.StrokeID) error {
	st, ok := s.timeline.Stroke(id)
	if !ok {
		return fmt.Errorf("%w: %d", scrawl.ErrUnknownStroke, id)
	}
	edits := scrawl.Group{scrawl.EndStroke{ID: id}}
	if f := st.Style.Fade; f != nil {
		shown := s.clock.Now().Add(f.Pause)
		gone := shown.Add(f.Fade)
		next := s.timeline.NextMarkerID()
		edits = append(edits,
			scrawl.AddMarker{Marker: scrawl.Marker{ID: next, Kind: scrawl.FadeMarker, Time: shown, Stroke: id, Opacity: 1}},
			scrawl.AddMarker{Marker: scrawl.Marker{ID: next + 1, Kind: scrawl.FadeMarker, Time: gone, Stroke: id, Opacity: 0}},
			scrawl.TruncateStroke{ID: id, At: gone},
		)
	}
	if err := s.record(edits); err != nil {
		return err
	}
	s.open = slices.DeleteFunc(s.open, func(o scrawl.StrokeID) bool { return o == id })
	return nil
}

// DrainCapture moves captured audio into the timeline until ctx is done.
// Run it in its own goroutine.
func (s *Session) DrainCapture(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.capture.Ready():
			s.mu.Lock()
			s.drainLocked()
			s.mu.Unlock()
		}
	}
}

// drainLocked appends the queued audio to the recording. Outside recording
// the queue is discarded.
func (s *Session) drainLocked() {
	blocks, dropped := s.capture.take()
	defer func() {
		for _, b := range blocks {
			s.broker.PutBuffer(b.samples)
		}
	}()
	if s.state != Recording {
		return
	}
	if dropped > 0 {
		s.broker.SendAlert("BufferOverrun", fmt.Sprintf("%v: %d samples dropped", scrawl.ErrBufferOverrun, dropped), Warning)
	}
	if len(blocks) == 0 {
		return
	}
	if !s.clock.Rate().Equal(scrawl.Normal) {
		if !s.audioIgnored {
			s.audioIgnored = true
			s.broker.SendAlert("AudioIgnored", fmt.Sprintf("Audio is not recorded at speed %v", s.clock.Rate()), Warning)
		}
		return
	}
	rate := s.timeline.SampleRate()
	for _, b := range blocks {
		samples := slices.Clone(*b.samples)
		if s.filter != nil {
			s.filter(samples)
		}
		idx := s.stampBlock(b.at, len(samples))
		c := scrawl.Chunk{Start: scrawl.FromSampleIndex(idx, rate), Samples: samples}
		if err := s.record(scrawl.AppendChunk{Chunk: c}); err != nil {
			s.broker.SendAlert("AudioDropped", fmt.Sprintf("Dropped %d samples: %v", len(samples), err), Warning)
		}
	}
}

// stampBlock returns the sample index of a captured block of n samples whose
// first sample was recorded at device time at. Blocks follow each other
// back to back unless the device time shows a gap.
func (s *Session) stampBlock(at time.Duration, n int) int64 {
	rate := s.timeline.SampleRate()
	st := &s.stamp
	if !st.started {
		st.started = true
		st.deviceAt = at
		st.anchorIdx = max(st.anchor.SampleIndex(rate), s.timeline.Audio().EndIndex())
		st.next = st.anchorIdx
	} else {
		dev := st.anchorIdx + int64(at-st.deviceAt)*int64(rate)/int64(time.Second)
		if dev-st.next > int64(n/2) {
			st.next = dev
		}
	}
	idx := st.next
	st.next += int64(n)
	return idx
}
