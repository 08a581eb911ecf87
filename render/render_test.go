package render_test

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/render"
)

type frameCollector []render.Frame

func (c *frameCollector) WriteFrame(f render.Frame) error {
	*c = append(*c, f)
	return nil
}

func timeline(t *testing.T) *scrawl.Timeline {
	t.Helper()
	tl := scrawl.NewTimeline(48000)
	edits := []scrawl.Edit{
		scrawl.AppendStroke{Stroke: scrawl.Stroke{
			ID: 0, End: scrawl.FromSeconds(1), Style: scrawl.Style{Color: scrawl.Black, Thickness: 0.05},
			Samples: []scrawl.Sample{{Point: scrawl.Point{X: 0.1, Y: 0.1}}, {Point: scrawl.Point{X: 0.9, Y: 0.1}, Offset: scrawl.Second / 2}},
		}},
		scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: 0, Samples: make([]int16, 48000)}},
		scrawl.AddMarker{Marker: scrawl.Marker{ID: 0, Kind: scrawl.FadeMarker, Time: scrawl.FromSeconds(1), Stroke: 0, Opacity: 0}},
	}
	for _, e := range edits {
		if _, err := tl.Apply(e); err != nil {
			t.Fatalf("Apply(%T): %v", e, err)
		}
	}
	return tl
}

func TestDriverFrames(t *testing.T) {
	tl := timeline(t)
	d, err := render.NewDriver(tl, 30)
	if err != nil {
		t.Fatal(err)
	}
	if n := d.FrameCount(); n != 30 {
		t.Fatalf("frame count: got %d, expected 30", n)
	}
	var frames frameCollector
	if err := d.Run(context.Background(), &frames); err != nil {
		t.Fatal(err)
	}
	total := 0
	for k, f := range frames {
		if f.Index != k || f.Time != scrawl.FromVideoFrame(k, 30) {
			t.Fatalf("frame %d has index %d and time %v", k, f.Index, f.Time)
		}
		total += len(f.Audio)
		if len(f.Strokes) != 1 {
			t.Fatalf("frame %d has %d strokes", k, len(f.Strokes))
		}
	}
	if total != 48000 {
		t.Fatalf("audio windows hold %d samples, expected 48000", total)
	}
	if n := len(frames[0].Strokes[0].Samples); n != 1 {
		t.Fatalf("first frame reveals %d samples, expected 1", n)
	}
	if n := len(frames[15].Strokes[0].Samples); n != 2 {
		t.Fatalf("frame at 0.5 s reveals %d samples, expected 2", n)
	}
	if o := frames[15].Strokes[0].Opacity; o != 0.5 {
		t.Fatalf("opacity at 0.5 s: %v, expected 0.5", o)
	}
	var again frameCollector
	if err := d.Run(context.Background(), &again); err != nil || len(again) != len(frames) {
		t.Fatalf("second run produced %d frames: %v", len(again), err)
	}
}

func TestDriverCancel(t *testing.T) {
	d, _ := render.NewDriver(timeline(t), 30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var frames frameCollector
	if err := d.Run(ctx, &frames); !errors.Is(err, context.Canceled) || len(frames) != 0 {
		t.Fatalf("cancelled run: %v after %d frames", err, len(frames))
	}
	if _, err := render.NewDriver(timeline(t), 0); !errors.Is(err, scrawl.ErrInvalidRate) {
		t.Fatalf("zero fps: got %v", err)
	}
}

func TestRasterizer(t *testing.T) {
	tl := timeline(t)
	d, _ := render.NewDriver(tl, 30)
	z := render.NewRasterizer(100, 75)
	img := z.NewImage()
	f := d.Frame(15)
	z.Draw(img, &f)
	// half way through the fade, black over white is mid gray
	if c := img.RGBAAt(50, 10); c.R < 120 || c.R > 135 || c.R != c.G || c.A != 255 {
		t.Fatalf("pixel on the stroke at opacity 0.5: %v, expected gray", c)
	}
	if c := img.RGBAAt(50, 50); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("pixel off the stroke: %v, expected white", c)
	}
	f = d.Frame(29)
	z.Draw(img, &f)
	if c := img.RGBAAt(50, 10); c.R < 200 {
		t.Fatalf("nearly faded stroke is too dark: %v", c)
	}
}

func TestRasterizerFitsCanvas(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	st := scrawl.Stroke{
		ID: 0, End: scrawl.Forever, Style: scrawl.Style{Color: scrawl.Black, Thickness: 0.05},
		Samples: []scrawl.Sample{{Point: scrawl.Point{X: 0.5, Y: 0.7}}},
	}
	if _, err := tl.Apply(scrawl.AppendStroke{Stroke: st}); err != nil {
		t.Fatal(err)
	}
	d, _ := render.NewDriver(tl, 30)
	f := d.Frame(0)
	for _, c := range []struct {
		w, h       int
		x, y       int // pixel of the point
		barX, barY int // pixel outside the canvas, -1 if the canvas fills the frame
	}{
		{100, 75, 50, 70, -1, -1},
		{160, 90, 80, 84, 5, 45},  // pillarbox: canvas is 120 px wide from x=20
		{100, 100, 50, 82, 50, 5}, // letterbox: canvas is 75 px tall from y=12.5
	} {
		z := render.NewRasterizer(c.w, c.h)
		img := z.NewImage()
		z.Draw(img, &f)
		if px := img.RGBAAt(c.x, c.y); px.R > 100 {
			t.Errorf("%dx%d: pixel at the point (%d, %d) is %v, expected dark", c.w, c.h, c.x, c.y, px)
		}
		if c.barX >= 0 {
			if px := img.RGBAAt(c.barX, c.barY); px != (color.RGBA{255, 255, 255, 255}) {
				t.Errorf("%dx%d: pixel outside the canvas is %v, expected background", c.w, c.h, px)
			}
		}
	}
}

func TestOutputPath(t *testing.T) {
	info := render.OutputInfo{Name: "My Lesson", Dir: "/videos", Height: 720, FPS: 30}
	for _, c := range []struct {
		tmpl, expected string
	}{
		{"", filepath.Join("/videos", "My Lesson-720p30.mp4")},
		{`{{.Name | lower | replace " " "-"}}.webm`, filepath.Join("/videos", "my-lesson.webm")},
		{"/out/{{.Name | upper}}.mp4", "/out/MY LESSON.mp4"},
	} {
		got, err := render.OutputPath(c.tmpl, info)
		if err != nil {
			t.Fatalf("%q: %v", c.tmpl, err)
		}
		if got != c.expected {
			t.Errorf("%q: got %q, expected %q", c.tmpl, got, c.expected)
		}
	}
	if _, err := render.OutputPath("{{.Missing", info); err == nil {
		t.Errorf("broken template did not fail")
	}
}
