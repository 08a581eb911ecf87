package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/filter"
)

type (
	FFmpegOptions struct {
		Binary        string // defaults to "ffmpeg"
		Width, Height int
		FPS           int
		SampleRate    int
		Encoder       string // e.g. libx264, h264_nvenc, h264_videotoolbox
		Quality       int
		Output        string
		// Workers is the number of frames rasterized in parallel; zero uses
		// the number of physical cores.
		Workers int
		// Normalize enables loudness normalization of the audio track.
		Normalize      bool
		LoudnessTarget filter.Decibel
		PeakCeiling    filter.Decibel
	}

	// FFmpegEncoder is a FrameSink that pipes rasterized frames to ffmpeg.
	// The video is encoded to a temporary file; Close writes the collected
	// audio to a temporary WAV and muxes both into Output.
	FFmpegEncoder struct {
		ctx     context.Context
		opts    FFmpegOptions
		tmpDir  string
		cmd     *exec.Cmd
		stdin   io.WriteCloser
		stderr  bytes.Buffer
		batch   []Frame
		images  []*image.RGBA
		rasters sync.Pool
		audio   []int16
	}
)

// NewFFmpegEncoder starts ffmpeg. Close must be called to finish the output
// and clean up, also after an error.
func NewFFmpegEncoder(ctx context.Context, opts FFmpegOptions) (*FFmpegEncoder, error) {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Encoder == "" {
		opts.Encoder = "libx264"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = scrawl.DefaultSampleRate
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid video format %dx%d at %d fps", opts.Width, opts.Height, opts.FPS)
	}
	if opts.Workers <= 0 {
		opts.Workers = workerCount()
	}
	tmpDir, err := os.MkdirTemp("", "scrawl_")
	if err != nil {
		return nil, err
	}
	e := &FFmpegEncoder{ctx: ctx, opts: opts, tmpDir: tmpDir}
	e.rasters.New = func() any { return NewRasterizer(opts.Width, opts.Height) }
	e.cmd = exec.CommandContext(ctx, opts.Binary, e.videoArgs()...)
	e.cmd.Stderr = &e.stderr
	if e.stdin, err = e.cmd.StdinPipe(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return e, nil
}

func workerCount() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func (e *FFmpegEncoder) videoPath() string { return filepath.Join(e.tmpDir, "video.mkv") }

func (e *FFmpegEncoder) audioPath() string { return filepath.Join(e.tmpDir, "audio.wav") }

func (e *FFmpegEncoder) videoArgs() []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", e.opts.Width, e.opts.Height),
		"-framerate", fmt.Sprintf("%d", e.opts.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", e.opts.Encoder,
	}
	args = append(args, qualityArgs(e.opts.Encoder, e.opts.Quality)...)
	return append(args, e.videoPath())
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func (e *FFmpegEncoder) muxArgs() []string {
	return []string{
		"-y",
		"-i", e.videoPath(),
		"-i", e.audioPath(),
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		e.opts.Output,
	}
}

// WriteFrame queues a frame. Frames are rasterized in parallel batches and
// written to ffmpeg in order.
func (e *FFmpegEncoder) WriteFrame(f Frame) error {
	e.audio = append(e.audio, f.Audio...)
	f.Audio = nil
	e.batch = append(e.batch, f)
	if len(e.batch) < 2*e.opts.Workers {
		return nil
	}
	return e.flush()
}

func (e *FFmpegEncoder) flush() error {
	for len(e.images) < len(e.batch) {
		e.images = append(e.images, image.NewRGBA(image.Rect(0, 0, e.opts.Width, e.opts.Height)))
	}
	g, _ := errgroup.WithContext(e.ctx)
	g.SetLimit(e.opts.Workers)
	for i := range e.batch {
		g.Go(func() error {
			z := e.rasters.Get().(*Rasterizer)
			z.Draw(e.images[i], &e.batch[i])
			e.rasters.Put(z)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range e.batch {
		if _, err := e.stdin.Write(e.images[i].Pix); err != nil {
			return fmt.Errorf("write raw error: %w: %s", err, e.stderr.String())
		}
	}
	clear(e.batch)
	e.batch = e.batch[:0]
	return nil
}

// Close encodes the queued frames, waits for ffmpeg and muxes the audio.
func (e *FFmpegEncoder) Close() error {
	defer os.RemoveAll(e.tmpDir)
	err := e.flush()
	e.stdin.Close()
	if werr := e.cmd.Wait(); err == nil && werr != nil {
		err = fmt.Errorf("ffmpeg wait error: %w: %s", werr, e.stderr.String())
	}
	if err != nil {
		return err
	}
	if e.opts.Normalize {
		filter.Normalize(e.audio, e.opts.SampleRate, e.opts.LoudnessTarget, e.opts.PeakCeiling)
	}
	wav, err := scrawl.Wav(e.audio, e.opts.SampleRate, false)
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.audioPath(), wav, 0644); err != nil {
		return err
	}
	cmd := exec.CommandContext(e.ctx, e.opts.Binary, e.muxArgs()...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(out))
	}
	return nil
}
