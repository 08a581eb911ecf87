package scrawl

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

type (
	MarkerID   int
	MarkerKind int

	// Marker is a point event on the timeline. Fade markers set the opacity
	// of one stroke; speed markers record the clock rate used from Time on.
	// Markers are ordered by time, ties broken by ID, which grows in
	// insertion order.
	Marker struct {
		ID      MarkerID   `yaml:"id"`
		Kind    MarkerKind `yaml:"kind"`
		Time    Time       `yaml:"time"`
		Stroke  StrokeID   `yaml:"stroke,omitempty"`
		Opacity float32    `yaml:"opacity,omitempty"`
		Rate    Rate       `yaml:"rate,omitempty"`
	}

	markerList struct {
		markers []Marker
		nextID  MarkerID
	}
)

const (
	FadeMarker MarkerKind = iota
	SpeedMarker
)

func (k MarkerKind) String() string {
	switch k {
	case FadeMarker:
		return "fade"
	case SpeedMarker:
		return "speed"
	}
	return fmt.Sprintf("MarkerKind(%d)", int(k))
}

func (k MarkerKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *MarkerKind) UnmarshalYAML(value *yaml.Node) error {
	switch value.Value {
	case "fade":
		*k = FadeMarker
	case "speed":
		*k = SpeedMarker
	default:
		return fmt.Errorf("unknown marker kind %q", value.Value)
	}
	return nil
}

func compareMarkers(a, b Marker) int {
	if c := cmpInt64(int64(a.Time), int64(b.Time)); c != 0 {
		return c
	}
	return int(a.ID) - int(b.ID)
}

func (l *markerList) add(m Marker) error {
	if i := slices.IndexFunc(l.markers, func(o Marker) bool { return o.ID == m.ID }); i >= 0 {
		return fmt.Errorf("%w: marker id %d already in use", ErrInvalidState, m.ID)
	}
	i, _ := slices.BinarySearchFunc(l.markers, m, compareMarkers)
	l.markers = slices.Insert(l.markers, i, m)
	l.nextID = max(l.nextID, m.ID+1)
	return nil
}

func (l *markerList) remove(id MarkerID) (Marker, error) {
	i := slices.IndexFunc(l.markers, func(o Marker) bool { return o.ID == id })
	if i < 0 {
		return Marker{}, fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}
	m := l.markers[i]
	l.markers = slices.Delete(l.markers, i, i+1)
	return m, nil
}

// fadeAt interpolates the opacity of a stroke starting at start. The stroke
// is implicitly fully opaque at its start; after the last fade marker its
// opacity holds.
func (l *markerList) fadeAt(id StrokeID, start, t Time) float32 {
	prevT, prevO := start, float32(1)
	if t < start {
		return prevO
	}
	for _, m := range l.markers {
		if m.Kind != FadeMarker || m.Stroke != id || m.Time < start {
			continue
		}
		if m.Time > t {
			f := float32(t.Sub(prevT)) / float32(m.Time.Sub(prevT))
			return prevO + (m.Opacity-prevO)*f
		}
		prevT, prevO = m.Time, m.Opacity
	}
	return prevO
}

func (l *markerList) rateAt(t Time) Rate {
	ret := Normal
	for _, m := range l.markers {
		if m.Time > t {
			break
		}
		if m.Kind == SpeedMarker {
			ret = m.Rate
		}
	}
	return ret
}

// nextSpeedChange returns the time of the first speed marker after t.
func (l *markerList) nextSpeedChange(t Time) (Time, bool) {
	for _, m := range l.markers {
		if m.Kind == SpeedMarker && m.Time > t {
			return m.Time, true
		}
	}
	return 0, false
}

func (l *markerList) validate(m Marker, curves *CurveStore) error {
	switch m.Kind {
	case FadeMarker:
		if _, ok := curves.Stroke(m.Stroke); !ok {
			return fmt.Errorf("%w: fade marker for stroke %d", ErrUnknownStroke, m.Stroke)
		}
		if m.Opacity < 0 || m.Opacity > 1 {
			return fmt.Errorf("%w: opacity %v", ErrInvalidRange, m.Opacity)
		}
	case SpeedMarker:
		if !m.Rate.Positive() {
			return fmt.Errorf("%w: speed marker rate %v", ErrInvalidRate, m.Rate)
		}
	default:
		return fmt.Errorf("%w: marker kind %d", ErrInvalidState, int(m.Kind))
	}
	return nil
}

func (l *markerList) clone() markerList {
	return markerList{markers: slices.Clone(l.markers), nextID: l.nextID}
}
