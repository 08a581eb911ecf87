package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vsariola/scrawl"
)

type (
	State int

	// Session is the state machine that records into and plays back a
	// timeline. All methods are safe for concurrent use.
	Session struct {
		mu       sync.RWMutex
		state    State
		timeline *scrawl.Timeline
		history  *History
		clock    Clock
		broker   *Broker
		capture  *Capture
		filter   func([]int16)

		recordRate scrawl.Rate
		playSpeed  scrawl.Rate

		// edits of the current recording, applied to the timeline but not
		// yet pushed to the history
		pending      []scrawl.Edit
		inverses     []scrawl.Edit
		pendingStart scrawl.Time
		open         []scrawl.StrokeID
		stamp        audioStamp
		audioIgnored bool
	}

	Options struct {
		MaxUndo int
		// CaptureLength is how much audio the capture queue holds before it
		// starts dropping the oldest samples.
		CaptureLength time.Duration
		RecordingRate scrawl.Rate
		// CaptureFilter is applied in place to captured audio before it is
		// added to the timeline, e.g. a noise gate.
		CaptureFilter func([]int16)
	}

	// audioStamp places captured blocks on the timeline by counting samples
	// from an anchor.
	audioStamp struct {
		anchor    scrawl.Time
		started   bool
		deviceAt  time.Duration
		anchorIdx int64
		next      int64
	}
)

const (
	Idle State = iota
	Recording
	Playing
	Paused
	Scrubbing
)

const DefaultCaptureLength = 2 * time.Second

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Scrubbing:
		return "scrubbing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// New returns an idle session editing tl. A nil tl starts an empty timeline.
func New(tl *scrawl.Timeline, broker *Broker, opts Options) *Session {
	if tl == nil {
		tl = scrawl.NewTimeline(scrawl.DefaultSampleRate)
	}
	if opts.CaptureLength <= 0 {
		opts.CaptureLength = DefaultCaptureLength
	}
	if !opts.RecordingRate.Positive() {
		opts.RecordingRate = scrawl.Normal
	}
	rate := tl.SampleRate()
	return &Session{
		timeline:   tl,
		history:    NewHistory(tl, opts.MaxUndo),
		broker:     broker,
		capture:    NewCapture(int(int64(opts.CaptureLength)*int64(rate)/int64(time.Second)), rate, broker),
		filter:     opts.CaptureFilter,
		recordRate: opts.RecordingRate,
		playSpeed:  scrawl.Normal,
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Now() scrawl.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock.Now()
}

func (s *Session) Duration() scrawl.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeline.Duration()
}

func (s *Session) Broker() *Broker { return s.broker }

// Capture returns the queue the audio device callback should push to.
func (s *Session) Capture() *Capture { return s.capture }

// View calls f with the live timeline while holding the lock for reading.
// f must not keep references to the timeline after it returns.
func (s *Session) View(f func(tl *scrawl.Timeline)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f(s.timeline)
}

// Snapshot returns a copy of the live timeline.
func (s *Session) Snapshot() *scrawl.Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeline.Copy()
}

func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// StartRecording begins recording at the current time. When the current
// time is before the end of the timeline, everything at or after it is
// discarded first, so recording at a past point records over the old future.
// At the end of the timeline only later speed changes are discarded.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: start recording while %v", scrawl.ErrInvalidTransition, s.state)
	}
	now := s.clock.Now()
	s.pending, s.inverses, s.open = nil, nil, nil
	s.pendingStart = now
	// at the end only the speed changes after now are stale; they would
	// retime the new recording
	over := s.timeline.RemoveSpeedChangesFrom(now)
	if now < s.timeline.Duration() {
		over = s.timeline.TruncateFrom(now)
	}
	if len(over) > 0 {
		if err := s.record(over); err != nil {
			return fmt.Errorf("could not record over: %w", err)
		}
	}
	if !s.timeline.RateAt(now).Equal(s.recordRate) {
		if err := s.record(s.speedMarker(now, s.recordRate)); err != nil {
			s.rollback()
			return err
		}
	}
	s.capture.discard()
	s.stamp = audioStamp{anchor: now}
	s.audioIgnored = false
	s.clock.SetRate(s.recordRate)
	s.clock.Start()
	s.state = Recording
	return nil
}

// StopRecording ends the recording and pushes it to the history as one
// edit. No edits are produced after it returns.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Recording {
		return fmt.Errorf("%w: stop recording while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.finishRecording()
	s.state = Idle
	return nil
}

// StartPlaying plays from the current time, or from the start if the
// current time is at the end.
func (s *Session) StartPlaying() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: start playing while %v", scrawl.ErrInvalidTransition, s.state)
	}
	if s.clock.Now() >= s.timeline.Duration() {
		s.clock.stopAt(0)
	}
	s.clock.SetRate(s.playSpeed.Mul(s.timeline.RateAt(s.clock.Now())))
	s.clock.Start()
	s.state = Playing
	return nil
}

// Pause freezes playback or recording. Pausing a recording finishes it the
// same way StopRecording does.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Recording:
		s.finishRecording()
	case Playing:
		s.clock.Stop()
	default:
		return fmt.Errorf("%w: pause while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.state = Paused
	return nil
}

// Stop ends playback or scrubbing, keeping the current time.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Playing, Paused, Scrubbing:
		s.clock.Stop()
		s.state = Idle
		return nil
	}
	return fmt.Errorf("%w: stop while %v", scrawl.ErrInvalidTransition, s.state)
}

// Scrub moves the current time without changing the timeline and leaves the
// session paused there.
func (s *Session) Scrub(to scrawl.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: scrub while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.state = Scrubbing
	s.scrubTo(to)
	s.state = Paused
	return nil
}

// BeginScrub enters the scrubbing state, e.g. when the user grabs the
// timeline slider.
func (s *Session) BeginScrub() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: begin scrubbing while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.state = Scrubbing
	return nil
}

func (s *Session) ScrubTo(to scrawl.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Scrubbing {
		return fmt.Errorf("%w: scrub while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.scrubTo(to)
	return nil
}

// Scan runs the clock at a signed rate while scrubbing, e.g. for fast
// forward or rewind. A zero rate stops scanning.
func (s *Session) Scan(r scrawl.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Scrubbing {
		return fmt.Errorf("%w: scan while %v", scrawl.ErrInvalidTransition, s.state)
	}
	if !r.Valid() {
		return fmt.Errorf("%w: %v", scrawl.ErrInvalidRate, r)
	}
	if r.Num == 0 {
		s.clock.Stop()
		return nil
	}
	s.clock.SetRate(r)
	s.clock.Start()
	return nil
}

func (s *Session) EndScrub() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Scrubbing {
		return fmt.Errorf("%w: end scrubbing while %v", scrawl.ErrInvalidTransition, s.state)
	}
	s.clock.Stop()
	s.state = Paused
	return nil
}

// Tick advances the clock by elapsed wall time and returns the timeline
// interval it covered. Playback follows the speed markers of the timeline
// and pauses at its end.
func (s *Session) Tick(elapsed time.Duration) (from, to scrawl.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked(elapsed)
}

func (s *Session) tickLocked(elapsed time.Duration) (from, to scrawl.Time) {
	from = s.clock.Now()
	switch s.state {
	case Recording:
		s.clock.Advance(elapsed)
	case Playing:
		s.play(elapsed)
	case Scrubbing:
		if s.clock.Running() {
			now := s.clock.Advance(elapsed)
			dur := s.timeline.Duration()
			if now >= dur || (now == 0 && s.clock.Rate().Num < 0) {
				s.clock.stopAt(min(now, dur))
			}
		}
	}
	return from, s.clock.Now()
}

// Close ends whatever is going on; the session becomes idle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Recording {
		s.finishRecording()
	}
	s.clock.Stop()
	s.state = Idle
}

// Undo reverts the last recording and moves the clock to where it began.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: undo while %v", scrawl.ErrInvalidTransition, s.state)
	}
	t, err := s.history.Undo(s.timeline)
	if err != nil {
		return err
	}
	s.clock.stopAt(t)
	s.broker.RequestAutosave(s.timeline.Copy())
	return nil
}

// Redo re-applies the next recording and moves the clock to where it ended.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle && s.state != Paused {
		return fmt.Errorf("%w: redo while %v", scrawl.ErrInvalidTransition, s.state)
	}
	t, err := s.history.Redo(s.timeline)
	if err != nil {
		return err
	}
	s.clock.stopAt(t)
	s.broker.RequestAutosave(s.timeline.Copy())
	return nil
}

// SetRecordingRate changes the clock rate used for recording. During a
// recording the change takes effect immediately and is stored as a speed
// marker, so playback reproduces it.
func (s *Session) SetRecordingRate(r scrawl.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.Positive() {
		return fmt.Errorf("%w: recording rate %v", scrawl.ErrInvalidRate, r)
	}
	if s.state == Recording && !r.Equal(s.recordRate) {
		now := s.clock.Now()
		if err := s.record(s.speedMarker(now, r)); err != nil {
			return err
		}
		s.clock.SetRate(r)
		s.stamp = audioStamp{anchor: now}
	}
	s.recordRate = r
	return nil
}

// SetPlaybackSpeed scales the rate of playback on top of the speed markers
// of the timeline.
func (s *Session) SetPlaybackSpeed(r scrawl.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.Positive() {
		return fmt.Errorf("%w: playback speed %v", scrawl.ErrInvalidRate, r)
	}
	s.playSpeed = r
	if s.state == Playing {
		s.clock.SetRate(r.Mul(s.timeline.RateAt(s.clock.Now())))
	}
	return nil
}

// PlaybackRate returns the rate the clock currently plays at.
func (s *Session) PlaybackRate() scrawl.Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock.Rate()
}

func (s *Session) RecordingRate() scrawl.Rate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordRate
}

func (s *Session) scrubTo(to scrawl.Time) {
	s.clock.stopAt(min(to, s.timeline.Duration()))
}

func (s *Session) play(elapsed time.Duration) {
	dur := s.timeline.Duration()
	for {
		now := s.clock.Now()
		if now >= dur {
			s.clock.stopAt(dur)
			s.state = Paused
			return
		}
		s.clock.SetRate(s.playSpeed.Mul(s.timeline.RateAt(now)))
		limit := dur
		if next, ok := s.timeline.NextSpeedChange(now); ok && next < limit {
			limit = next
		}
		need, ok := s.clock.Until(limit)
		if !ok || need > elapsed {
			s.clock.Advance(elapsed)
			return
		}
		s.clock.Advance(need)
		s.clock.set(limit)
		elapsed -= need
	}
}

// record applies an edit of the current recording.
func (s *Session) record(e scrawl.Edit) error {
	inv, err := s.timeline.Apply(e)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, e)
	s.inverses = append(s.inverses, inv)
	return nil
}

// rollback reverts the edits of the current recording. Each inverse was
// returned by applying its edit to the timeline in its current state, so
// applying them in reverse order cannot fail unless the timeline was
// mutated outside the session.
func (s *Session) rollback() {
	for i := len(s.inverses) - 1; i >= 0; i-- {
		if _, err := s.timeline.Apply(s.inverses[i]); err != nil {
			panic(fmt.Errorf("could not revert recording: %w", err))
		}
	}
	s.pending, s.inverses = nil, nil
}

// finishRecording closes the open strokes, drains the captured audio and
// moves the recording into the history as one compacted edit.
func (s *Session) finishRecording() {
	for _, id := range slices.Clone(s.open) {
		if err := s.endStroke(id); err != nil {
			s.broker.SendAlert("EndStroke", fmt.Sprintf("Could not end stroke %d: %v", id, err), Error)
		}
	}
	s.drainLocked()
	end := s.clock.Now()
	s.clock.Stop()
	if len(s.pending) == 0 {
		return
	}
	edits := slices.Clone(s.pending)
	s.rollback()
	compacted := scrawl.Compact(edits, s.timeline.SampleRate())
	if err := s.history.Do(s.timeline, compacted, s.pendingStart, end); err != nil {
		// the same edits were just applied and rolled back, so they apply again
		if err := s.history.Do(s.timeline, scrawl.Group(edits), s.pendingStart, end); err != nil {
			panic(fmt.Errorf("could not replay recording: %w", err))
		}
	}
	s.broker.RequestAutosave(s.timeline.Copy())
}

func (s *Session) speedMarker(at scrawl.Time, r scrawl.Rate) scrawl.Edit {
	return scrawl.AddMarker{Marker: scrawl.Marker{ID: s.timeline.NextMarkerID(), Kind: scrawl.SpeedMarker, Time: at, Rate: r}}
}
