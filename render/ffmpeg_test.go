package render

import (
	"slices"
	"testing"
)

func TestQualityArgs(t *testing.T) {
	for _, c := range []struct {
		encoder  string
		quality  int
		expected []string
	}{
		{"libx264", 23, []string{"-crf", "23", "-preset", "medium"}},
		{"h264_nvenc", 28, []string{"-cq", "28"}},
		{"h264_videotoolbox", 75, []string{"-b:v", "7500k"}},
	} {
		if got := qualityArgs(c.encoder, c.quality); !slices.Equal(got, c.expected) {
			t.Errorf("%s: got %v, expected %v", c.encoder, got, c.expected)
		}
	}
}

func TestVideoArgs(t *testing.T) {
	e := &FFmpegEncoder{opts: FFmpegOptions{Width: 640, Height: 480, FPS: 30, Encoder: "libx264", Quality: 20}, tmpDir: "/tmp/x"}
	args := e.videoArgs()
	if i := slices.Index(args, "-video_size"); i < 0 || args[i+1] != "640x480" {
		t.Fatalf("video size missing from %v", args)
	}
	if args[len(args)-1] != e.videoPath() {
		t.Fatalf("output is not the temporary video: %v", args)
	}
	if i := slices.Index(e.muxArgs(), "-shortest"); i < 0 {
		t.Fatalf("mux does not cut to the shortest stream")
	}
}
