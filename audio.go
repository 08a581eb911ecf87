package scrawl

import (
	"fmt"
	"slices"
)

type (
	// AudioSink receives mono int16 audio at the timeline sample rate.
	AudioSink interface {
		WriteAudio(buffer []int16) error
		Close() error
	}

	AudioContext interface {
		Output() AudioSink
		Close() error
	}

	// Chunk is a contiguous block of mono audio samples whose first sample
	// plays at Start.
	Chunk struct {
		Start   Time
		Samples []int16
	}

	// AudioTrack stores recorded audio as non-overlapping runs sorted by
	// start. Chunks recorded back to back are coalesced into one run;
	// truncation only shortens the visible part of a run, so the recorded
	// data survives for undo.
	AudioTrack struct {
		sampleRate int
		runs       []audioRun
	}

	audioRun struct {
		start   int64
		samples []int16
		n       int // visible prefix of samples
	}

	// AudioSpan is the visible extent of one stored run, used to restore
	// audio after a truncation.
	AudioSpan struct {
		Run   int   `yaml:"run"`
		Start int64 `yaml:"start"`
		Len   int   `yaml:"len"`
	}
)

func NewAudioTrack(sampleRate int) AudioTrack {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return AudioTrack{sampleRate: sampleRate}
}

func (a *AudioTrack) SampleRate() int { return a.sampleRate }

// EndIndex returns the index one past the last audible recorded sample.
func (a *AudioTrack) EndIndex() int64 {
	var ret int64
	for _, r := range a.runs {
		if r.n > 0 {
			ret = max(ret, r.start+int64(r.n))
		}
	}
	return ret
}

// End returns the time just after the last recorded sample.
func (a *AudioTrack) End() Time {
	return FromSampleIndex(a.EndIndex(), a.sampleRate)
}

// Chunks iterates over the visible runs of audio. The samples alias the
// track and must not be modified.
func (a *AudioTrack) Chunks(yield func(Chunk) bool) {
	for _, r := range a.runs {
		if r.n == 0 {
			continue
		}
		if !yield(Chunk{Start: FromSampleIndex(r.start, a.sampleRate), Samples: r.samples[:r.n:r.n]}) {
			return
		}
	}
}

// SamplesInRange returns the audio between t0 and t1. Gaps are filled with
// silence. The result has t1.SampleIndex() - t0.SampleIndex() samples.
func (a *AudioTrack) SamplesInRange(t0, t1 Time) ([]int16, error) {
	if t1 < t0 {
		return nil, fmt.Errorf("%w: %v > %v", ErrInvalidRange, t0, t1)
	}
	i0, i1 := t0.SampleIndex(a.sampleRate), t1.SampleIndex(a.sampleRate)
	ret := make([]int16, i1-i0)
	a.ReadSamples(i0, ret)
	return ret, nil
}

// ReadSamples fills dst with the samples starting at index from, writing
// silence where nothing was recorded.
func (a *AudioTrack) ReadSamples(from int64, dst []int16) {
	clear(dst)
	to := from + int64(len(dst))
	for _, r := range a.runs {
		rEnd := r.start + int64(r.n)
		if rEnd <= from || r.n == 0 {
			continue
		}
		if r.start >= to {
			break
		}
		lo, hi := max(from, r.start), min(to, rEnd)
		copy(dst[lo-from:hi-from], r.samples[lo-r.start:hi-r.start])
	}
}

func (a *AudioTrack) appendChunk(c Chunk) error {
	if len(c.Samples) == 0 {
		return fmt.Errorf("%w: empty audio chunk at %v", ErrInvalidRange, c.Start)
	}
	idx := c.Start.SampleIndex(a.sampleRate)
	end := idx + int64(len(c.Samples))
	for _, r := range a.runs {
		if r.n > 0 && idx < r.start+int64(r.n) && r.start < end {
			return fmt.Errorf("%w: chunk at %v", ErrOverlap, c.Start)
		}
	}
	// insertion point: the first run starting after idx
	i, _ := slices.BinarySearchFunc(a.runs, idx, func(r audioRun, idx int64) int { return cmpInt64(r.start, idx+1) })
	if i > 0 {
		prev := &a.runs[i-1]
		if prev.n == len(prev.samples) && prev.start+int64(prev.n) == idx {
			prev.samples = append(prev.samples[:prev.n:prev.n], c.Samples...)
			prev.n = len(prev.samples)
			return nil
		}
	}
	a.runs = slices.Insert(a.runs, i, audioRun{start: idx, samples: slices.Clone(c.Samples), n: len(c.Samples)})
	return nil
}

// unappendChunk removes the n samples most recently appended at start.
func (a *AudioTrack) unappendChunk(start Time, n int) (Chunk, error) {
	idx := start.SampleIndex(a.sampleRate)
	for i := range a.runs {
		r := &a.runs[i]
		if r.start > idx || r.n != len(r.samples) || r.start+int64(r.n) != idx+int64(n) {
			continue
		}
		removed := Chunk{Start: start, Samples: slices.Clone(r.samples[r.n-n:])}
		if r.start == idx {
			a.runs = slices.Delete(a.runs, i, i+1)
		} else {
			r.n -= n
			r.samples = r.samples[:r.n:r.n]
		}
		return removed, nil
	}
	return Chunk{}, fmt.Errorf("%w: no appended audio of %d samples at %v", ErrInvalidRange, n, start)
}

// truncateAt hides all audio from t onwards and returns the visible spans of
// the runs it changed.
func (a *AudioTrack) truncateAt(t Time) []AudioSpan {
	idx := t.SampleIndex(a.sampleRate)
	var prev []AudioSpan
	for i := range a.runs {
		r := &a.runs[i]
		end := r.start + int64(r.n)
		if end <= idx || r.n == 0 {
			continue
		}
		prev = append(prev, AudioSpan{Run: i, Start: r.start, Len: r.n})
		r.n = int(max(0, idx-r.start))
	}
	return prev
}

// restore sets the visible length of the listed runs and returns their
// previous spans. Runs are addressed by position, which is stable because
// restores are applied in reverse order of the truncations they undo.
func (a *AudioTrack) restore(spans []AudioSpan) ([]AudioSpan, error) {
	for _, sp := range spans {
		if sp.Run < 0 || sp.Run >= len(a.runs) || a.runs[sp.Run].start != sp.Start || sp.Len < 0 || sp.Len > len(a.runs[sp.Run].samples) {
			return nil, fmt.Errorf("%w: no audio run of %d samples at index %d", ErrInvalidRange, sp.Len, sp.Start)
		}
	}
	prev := make([]AudioSpan, len(spans))
	for k, sp := range spans {
		r := &a.runs[sp.Run]
		prev[k] = AudioSpan{Run: sp.Run, Start: r.start, Len: r.n}
		r.n = sp.Len
	}
	return prev, nil
}

func (a *AudioTrack) clone() AudioTrack {
	ret := AudioTrack{sampleRate: a.sampleRate, runs: make([]audioRun, len(a.runs))}
	for i, r := range a.runs {
		ret.runs[i] = audioRun{start: r.start, samples: slices.Clone(r.samples), n: r.n}
	}
	return ret
}

func (a *AudioTrack) equal(o *AudioTrack) bool {
	if a.sampleRate != o.sampleRate {
		return false
	}
	return slices.EqualFunc(a.runs, o.runs, func(x, y audioRun) bool {
		return x.start == y.start && x.n == y.n && slices.Equal(x.samples, y.samples)
	})
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
