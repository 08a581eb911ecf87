// Package render walks a timeline frame by frame and turns the frames into
// pictures and video.
package render

import (
	"context"
	"fmt"
	"iter"

	"github.com/vsariola/scrawl"
)

type (
	// Source is the read-only view of a timeline that rendering needs.
	// *scrawl.Timeline implements it.
	Source interface {
		Duration() scrawl.Time
		SampleRate() int
		VisibleAt(t scrawl.Time) iter.Seq[scrawl.StrokeID]
		Stroke(id scrawl.StrokeID) (*scrawl.Stroke, bool)
		FadeAt(id scrawl.StrokeID, t scrawl.Time) float32
		ReadSamples(from int64, dst []int16)
	}

	// Frame is the fully resolved content of one video frame.
	Frame struct {
		Index   int
		Time    scrawl.Time
		Strokes []StrokeFrame // in drawing order, later strokes on top
		Audio   []int16       // the samples playing during the frame
	}

	StrokeFrame struct {
		ID    scrawl.StrokeID
		Style scrawl.Style
		// Samples is the part of the stroke drawn by the frame time. It
		// aliases the source and must not be modified.
		Samples []scrawl.Sample
		Opacity float32
	}

	FrameSink interface {
		WriteFrame(f Frame) error
	}

	// Driver produces the frames of a timeline in order, from time 0 to its
	// duration. It only reads the source.
	Driver struct {
		src Source
		fps int
	}
)

func NewDriver(src Source, fps int) (*Driver, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: %d frames per second", scrawl.ErrInvalidRate, fps)
	}
	return &Driver{src: src, fps: fps}, nil
}

func (d *Driver) FPS() int { return d.fps }

// FrameCount returns the number of frames needed to cover the duration.
func (d *Driver) FrameCount() int {
	dur := int64(d.src.Duration())
	return int((dur*int64(d.fps) + int64(scrawl.Second) - 1) / int64(scrawl.Second))
}

// AudioWindow returns the sample indices [from, to) playing during frame k.
// The windows of consecutive frames are contiguous.
func (d *Driver) AudioWindow(k int) (from, to int64) {
	sr := int64(d.src.SampleRate())
	return int64(k) * sr / int64(d.fps), int64(k+1) * sr / int64(d.fps)
}

// Frame resolves frame k.
func (d *Driver) Frame(k int) Frame {
	t := scrawl.FromVideoFrame(k, d.fps)
	f := Frame{Index: k, Time: t}
	for id := range d.src.VisibleAt(t) {
		s, ok := d.src.Stroke(id)
		if !ok {
			continue
		}
		f.Strokes = append(f.Strokes, StrokeFrame{
			ID:      id,
			Style:   s.Style,
			Samples: s.RevealedAt(t),
			Opacity: d.src.FadeAt(id, t),
		})
	}
	from, to := d.AudioWindow(k)
	f.Audio = make([]int16, to-from)
	d.src.ReadSamples(from, f.Audio)
	return f
}

// Frames iterates over all frames from the first. Each iteration starts from
// time 0 again.
func (d *Driver) Frames() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		n := d.FrameCount()
		for k := 0; k < n; k++ {
			if !yield(d.Frame(k)) {
				return
			}
		}
	}
}

// Audio returns the audio of all frames back to back.
func (d *Driver) Audio() []int16 {
	_, to := d.AudioWindow(d.FrameCount() - 1)
	ret := make([]int16, max(to, 0))
	d.src.ReadSamples(0, ret)
	return ret
}

// Run writes every frame to sink in order. It stops between frames when ctx
// is done.
func (d *Driver) Run(ctx context.Context, sink FrameSink) error {
	for f := range d.Frames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.WriteFrame(f); err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
	}
	return nil
}
