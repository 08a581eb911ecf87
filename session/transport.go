package session

import (
	"github.com/vsariola/scrawl"
)

// TogglePlayback starts playing, or pauses if playing or recording.
func (s *Session) TogglePlayback() error {
	switch s.State() {
	case Playing, Recording:
		return s.Pause()
	case Scrubbing:
		if err := s.EndScrub(); err != nil {
			return err
		}
	}
	return s.StartPlaying()
}

// ToggleRecording stops a recording, or starts one at the current time.
func (s *Session) ToggleRecording() error {
	switch s.State() {
	case Recording:
		return s.StopRecording()
	case Playing:
		if err := s.Pause(); err != nil {
			return err
		}
	case Scrubbing:
		if err := s.EndScrub(); err != nil {
			return err
		}
	}
	return s.StartRecording()
}

// Halt stops whatever the session is doing and leaves it idle.
func (s *Session) Halt() error {
	switch s.State() {
	case Idle:
		return nil
	case Recording:
		return s.StopRecording()
	}
	return s.Stop()
}

// ScrubFraction moves the current time to the fraction f of the timeline
// duration, pausing playback first.
func (s *Session) ScrubFraction(f float64) error {
	f = min(max(f, 0), 1)
	to := scrawl.Time(f * float64(s.Duration()))
	switch s.State() {
	case Scrubbing:
		return s.ScrubTo(to)
	case Playing:
		if err := s.Pause(); err != nil {
			return err
		}
	}
	return s.Scrub(to)
}
