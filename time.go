package scrawl

import (
	"fmt"
	"math"
	"time"
)

type (
	// Time is a position on the timeline, in microseconds from the start.
	// Times are never negative.
	Time int64

	// Diff is a signed difference between two Times, in microseconds.
	Diff int64
)

const (
	Millisecond Diff = 1000
	Second      Diff = 1000 * Millisecond

	// Forever is the validity end of a stroke that has not been truncated.
	Forever Time = math.MaxInt64

	DefaultSampleRate = 48000
)

func FromSeconds(s float64) Time {
	if s <= 0 {
		return 0
	}
	return Time(math.Round(s * float64(Second)))
}

func FromDuration(d time.Duration) Diff {
	return Diff(d / time.Microsecond)
}

// FromVideoFrame returns the time of the first microsecond belonging to the
// given frame.
func FromVideoFrame(frame int, fps int) Time {
	return Time(ceilDiv(int64(frame)*int64(Second), int64(fps)))
}

// FromSampleIndex returns the earliest time whose SampleIndex is idx.
func FromSampleIndex(idx int64, sampleRate int) Time {
	if idx <= 0 {
		return 0
	}
	return Time(ceilDiv(idx*int64(Second), int64(sampleRate)))
}

func (t Time) Seconds() float64 { return float64(t) / float64(Second) }

// Add returns t+d, saturated to [0, Forever].
func (t Time) Add(d Diff) Time {
	if t == Forever {
		return Forever
	}
	if d > 0 && int64(t) > math.MaxInt64-int64(d) {
		return Forever
	}
	r := int64(t) + int64(d)
	if r < 0 {
		return 0
	}
	return Time(r)
}

func (t Time) Sub(u Time) Diff { return Diff(t - u) }

// SampleIndex returns the index of the audio sample that is playing at time t.
// The conversion truncates.
func (t Time) SampleIndex(sampleRate int) int64 {
	return int64(t) * int64(sampleRate) / int64(Second)
}

// VideoFrame returns the index of the video frame showing at time t.
func (t Time) VideoFrame(fps int) int {
	return int(int64(t) * int64(fps) / int64(Second))
}

func (t Time) String() string {
	if t == Forever {
		return "forever"
	}
	us := int64(t)
	m := us / int64(60*Second)
	s := (us / int64(Second)) % 60
	ms := (us / int64(Millisecond)) % 1000
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}

func (d Diff) Seconds() float64 { return float64(d) / float64(Second) }

func (d Diff) Duration() time.Duration { return time.Duration(d) * time.Microsecond }

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
