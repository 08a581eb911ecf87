package session

import (
	"context"
	"time"

	"github.com/vsariola/scrawl"
)

const DefaultTickInterval = 20 * time.Millisecond

// Playback drives the session clock from the wall clock and, while playing
// at normal speed, writes the audio of each tick to an output.
type Playback struct {
	session  *Session
	sink     scrawl.AudioSink
	interval time.Duration
}

// NewPlayback returns a Playback ticking every interval. A nil sink plays
// nothing but still moves the clock.
func NewPlayback(s *Session, sink scrawl.AudioSink, interval time.Duration) *Playback {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Playback{session: s, sink: sink, interval: interval}
}

// Run ticks until ctx is done. It returns the first error of the audio
// output.
func (p *Playback) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			samples := p.session.tickPlayback(now.Sub(last))
			last = now
			if p.sink == nil || len(samples) == 0 {
				continue
			}
			if err := p.sink.WriteAudio(samples); err != nil {
				return err
			}
		}
	}
}

// tickPlayback ticks the session and returns the audio to output for the
// tick, if any.
func (s *Session) tickPlayback(elapsed time.Duration) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	playing := s.state == Playing && s.clock.Rate().Equal(scrawl.Normal)
	from, to := s.tickLocked(elapsed)
	if !playing || !s.clock.Rate().Equal(scrawl.Normal) || to <= from {
		return nil
	}
	ret, _ := s.timeline.SamplesInRange(from, to)
	return ret
}
