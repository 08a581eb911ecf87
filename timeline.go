package scrawl

import (
	"iter"
	"slices"
)

// Timeline aggregates the strokes, the audio and the markers of a project.
// It is the unit of undo/redo and of saving; Apply is the only way to
// change it. A Timeline is not safe for concurrent use.
type Timeline struct {
	curves  CurveStore
	audio   AudioTrack
	markers markerList
}

func NewTimeline(sampleRate int) *Timeline {
	return &Timeline{audio: NewAudioTrack(sampleRate)}
}

// Apply performs the edit and returns its inverse. On error the timeline is
// left unchanged.
func (t *Timeline) Apply(e Edit) (Edit, error) {
	return e.apply(t)
}

func (t *Timeline) Curves() *CurveStore { return &t.curves }

func (t *Timeline) Audio() *AudioTrack { return &t.audio }

func (t *Timeline) SampleRate() int { return t.audio.sampleRate }

// Duration is the last time at which a stroke is visible or audio plays.
func (t *Timeline) Duration() Time {
	return max(t.curves.End(), t.audio.End())
}

func (t *Timeline) VisibleAt(at Time) iter.Seq[StrokeID] { return t.curves.VisibleAt(at) }

func (t *Timeline) Stroke(id StrokeID) (*Stroke, bool) { return t.curves.Stroke(id) }

func (t *Timeline) SamplesInRange(t0, t1 Time) ([]int16, error) {
	return t.audio.SamplesInRange(t0, t1)
}

func (t *Timeline) ReadSamples(from int64, dst []int16) { t.audio.ReadSamples(from, dst) }

// FadeAt returns the opacity of a stroke at the given time, interpolated
// linearly between its fade markers. Strokes without markers are opaque.
func (t *Timeline) FadeAt(id StrokeID, at Time) float32 {
	s, ok := t.curves.Stroke(id)
	if !ok {
		return 1
	}
	return t.markers.fadeAt(id, s.Start, at)
}

// RateAt returns the rate recorded by the last speed marker at or before
// the given time.
func (t *Timeline) RateAt(at Time) Rate { return t.markers.rateAt(at) }

// NextSpeedChange returns the time of the first speed marker after at.
func (t *Timeline) NextSpeedChange(at Time) (Time, bool) { return t.markers.nextSpeedChange(at) }

func (t *Timeline) Markers() iter.Seq[Marker] { return slices.Values(t.markers.markers) }

func (t *Timeline) NextMarkerID() MarkerID { return t.markers.nextID }

// TruncateFrom returns the edits that discard all content from time at
// onwards: strokes visible at or after at are cut at at, audio is truncated
// and later markers are removed. The edits are not applied.
func (t *Timeline) TruncateFrom(at Time) Group {
	var ret Group
	for _, m := range slices.Backward(t.markers.markers) {
		if m.Time >= at {
			ret = append(ret, RemoveMarker{m.ID})
		}
	}
	for s := range t.curves.All() {
		if s.End > at && s.Live() {
			ret = append(ret, TruncateStroke{s.ID, at})
		}
	}
	if t.audio.EndIndex() > at.SampleIndex(t.audio.sampleRate) {
		ret = append(ret, TruncateAudio{at})
	}
	return ret
}

// RemoveSpeedChangesFrom returns the edits that remove the speed markers at
// or after at. The edits are not applied.
func (t *Timeline) RemoveSpeedChangesFrom(at Time) Group {
	var ret Group
	for _, m := range slices.Backward(t.markers.markers) {
		if m.Kind == SpeedMarker && m.Time >= at {
			ret = append(ret, RemoveMarker{m.ID})
		}
	}
	return ret
}

// Copy returns a deep copy that shares nothing with t.
func (t *Timeline) Copy() *Timeline {
	return &Timeline{
		curves:  t.curves.clone(),
		audio:   t.audio.clone(),
		markers: t.markers.clone(),
	}
}

// Equal compares the content of two timelines, including recorded data that
// is not currently visible. Id allocation counters are not compared.
func (t *Timeline) Equal(o *Timeline) bool {
	return t.curves.equal(&o.curves) && t.audio.equal(&o.audio) && slices.Equal(t.markers.markers, o.markers.markers)
}
