package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/config"
	"github.com/vsariola/scrawl/render"
	"github.com/vsariola/scrawl/version"
)

func main() {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		log.Fatalf("could not read config %v: %v", cfgPath, err)
	}
	e := cfg.Export
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	output := flag.String("o", e.Output, "Output file name template. Has the fields .Name, .Dir, .Width, .Height, .FPS, .Duration and .Date and the sprig template functions. Relative paths are placed next to the input.")
	width := flag.Int("width", e.Width, "Video width in pixels.")
	height := flag.Int("height", e.Height, "Video height in pixels.")
	fps := flag.Int("fps", e.FPS, "Frames per second.")
	encoder := flag.String("encoder", e.Encoder, "ffmpeg video encoder, e.g. libx264, h264_nvenc or h264_videotoolbox.")
	quality := flag.Int("quality", e.Quality, "Encoder quality; crf for libx264.")
	ffmpeg := flag.String("ffmpeg", e.FFmpeg, "Path of the ffmpeg binary.")
	workers := flag.Int("workers", e.Workers, "Frames rasterized in parallel; zero uses the number of physical cores.")
	noNormalize := flag.Bool("no-normalize", !e.Normalize, "Do not normalize the loudness of the audio.")
	wavOut := flag.Bool("w", false, "Output only the audio track as a .wav file.")
	float := flag.Bool("f", false, "Write float32 instead of 16-bit PCM when outputting .wav.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Banner("scrawl-render"))
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	p := message.NewPrinter(language.English)
	process := func(filename string) error {
		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("could not open file %v: %w", filename, err)
		}
		tl, err := scrawl.ReadTimeline(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", filename, err)
		}
		d, err := render.NewDriver(tl, *fps)
		if err != nil {
			return err
		}
		if *wavOut {
			wav, err := scrawl.Wav(d.Audio(), tl.SampleRate(), *float)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %w", err)
			}
			out := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".wav"
			if err := os.WriteFile(out, wav, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %w", out, err)
			}
			log.Printf("wrote %v", out)
			return nil
		}
		out, err := render.OutputPath(*output, render.InfoFor(filename, d, *width, *height))
		if err != nil {
			return err
		}
		enc, err := render.NewFFmpegEncoder(ctx, render.FFmpegOptions{
			Binary:         *ffmpeg,
			Width:          *width,
			Height:         *height,
			FPS:            *fps,
			SampleRate:     tl.SampleRate(),
			Encoder:        *encoder,
			Quality:        *quality,
			Output:         out,
			Workers:        *workers,
			Normalize:      !*noNormalize,
			LoudnessTarget: e.LoudnessTarget,
			PeakCeiling:    e.PeakCeiling,
		})
		if err != nil {
			return err
		}
		start := time.Now()
		sink := &progress{sink: enc, total: d.FrameCount(), every: *fps * 10, printer: p}
		runErr := d.Run(ctx, sink)
		closeErr := enc.Close()
		if runErr != nil {
			return runErr
		}
		if closeErr != nil {
			return closeErr
		}
		p.Fprintf(os.Stderr, "wrote %v: %d frames in %v\n", out, d.FrameCount(), time.Since(start).Round(time.Millisecond))
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			log.Printf("could not process file %v: %v", param, err)
			retval = 1
		}
		if ctx.Err() != nil {
			break
		}
	}
	os.Exit(retval)
}

// progress reports the frame count every so many frames.
type progress struct {
	sink    render.FrameSink
	total   int
	every   int
	printer *message.Printer
}

func (p *progress) WriteFrame(f render.Frame) error {
	if p.every > 0 && f.Index%p.every == 0 {
		p.printer.Fprintf(os.Stderr, "frame %d / %d\n", f.Index, p.total)
	}
	return p.sink.WriteFrame(f)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Scrawl command line utility for exporting timelines to video.\nUsage: %s [flags] [file.yml ...]\n", os.Args[0])
	flag.PrintDefaults()
}
