package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/cmd"
	"github.com/vsariola/scrawl/config"
	"github.com/vsariola/scrawl/filter"
	"github.com/vsariola/scrawl/gomidi"
	"github.com/vsariola/scrawl/oto"
	"github.com/vsariola/scrawl/session"
	"github.com/vsariola/scrawl/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	midiPrefix := flag.String("midi", "", "Open the first MIDI input whose name starts with this prefix and use it as a transport controller. Overrides midi.input of the config.")
	useMidi := flag.Bool("m", false, "Use a MIDI input as a transport controller.")
	listMidi := flag.Bool("list-midi", false, "List the MIDI inputs and exit.")
	capture := flag.Bool("capture", false, "Record narration from standard input (raw mono s16le PCM at the sample rate of the timeline) over the timeline, starting from the beginning.")
	speed := flag.String("speed", "normal", "Recording speed preset, as named in recording.speeds of the config.")
	gate := flag.Float64("gate", 0, "Noise gate threshold for captured audio in dBFS. Zero uses audio.noise_gate of the config.")
	noAutosave := flag.Bool("no-autosave", false, "Do not autosave while recording.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Banner("scrawl-play"))
		os.Exit(0)
	}
	if *listMidi {
		names, err := cmd.MIDIInputs()
		if err != nil {
			log.Fatal(err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	cfg, cfgPath, err := config.Load()
	if err != nil {
		log.Fatalf("could not read config %v: %v", cfgPath, err)
	}
	filename := flag.Arg(0)
	tl, err := readOrCreate(filename, cfg.Audio.SampleRate)
	if err != nil {
		log.Fatal(err)
	}
	rate, err := cfg.Speed(*speed)
	if err != nil {
		log.Fatal(err)
	}
	threshold := cfg.Audio.NoiseGate
	if *gate != 0 {
		threshold = filter.Decibel(*gate)
	}
	broker := session.NewBroker()
	s := session.New(tl, broker, session.Options{
		MaxUndo:       cfg.History.MaxUndo,
		CaptureLength: cfg.Audio.CaptureDuration(),
		RecordingRate: rate,
		CaptureFilter: filter.NoiseGate(tl.SampleRate(), threshold),
	})
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	audioContext, err := oto.NewContext(tl.SampleRate())
	if err != nil {
		log.Fatalf("could not acquire oto AudioContext: %v", err)
	}
	defer audioContext.Close()
	output := audioContext.Output()
	defer output.Close()

	go logAlerts(ctx, broker)
	go func() {
		if err := session.NewPlayback(s, output, session.DefaultTickInterval).Run(ctx); err != nil {
			log.Printf("audio output failed: %v", err)
			stop()
		}
	}()
	go s.DrainCapture(ctx)

	var autosaver *session.Autosaver
	if !*noAutosave {
		dir, err := cfg.Autosave.Directory()
		if err != nil {
			log.Fatalf("could not find an autosave directory: %v", err)
		}
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		autosaver = session.NewAutosaver(broker, dir, name)
		go autosaver.Run()
		go autosaveWhileRecording(ctx, s, cfg.Autosave.Interval)
	}

	if *useMidi || *midiPrefix != "" {
		prefix := cfg.MIDI.Input
		if *midiPrefix != "" {
			prefix = *midiPrefix
		}
		transport := gomidi.NewTransport(s, cfg.MIDI.Bindings, broker)
		input, err := cmd.OpenMIDI(prefix, transport)
		if err != nil {
			log.Fatalf("could not open MIDI input: %v", err)
		}
		defer input.Close()
		go transport.Run(ctx)
		log.Printf("using %v as a transport controller, interrupt to quit", input)
		<-ctx.Done()
	} else if *capture {
		err := record(ctx, s, tl.SampleRate())
		if err != nil {
			log.Printf("recording failed: %v", err)
		}
	} else {
		if err := s.StartPlaying(); err != nil {
			log.Fatal(err)
		}
		waitUntilPaused(ctx, s)
	}

	if err := s.Halt(); err != nil {
		log.Printf("could not stop: %v", err)
	}
	if s.CanUndo() {
		if err := save(filename, s.Snapshot()); err != nil {
			log.Printf("could not save %v: %v", filename, err)
		} else {
			log.Printf("saved %v", filename)
		}
	}
	if autosaver != nil {
		broker.CloseAutosave <- struct{}{}
		if _, ok := session.TimeoutReceive(broker.FinishedAutosave, 3*time.Second); !ok {
			log.Printf("autosave to %v did not finish in time", autosaver.Path())
		}
	}
}

func readOrCreate(filename string, sampleRate int) (*scrawl.Timeline, error) {
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return scrawl.NewTimeline(sampleRate), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", filename, err)
	}
	defer f.Close()
	tl, err := scrawl.ReadTimeline(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %v: %w", filename, err)
	}
	return tl, nil
}

func save(filename string, tl *scrawl.Timeline) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := scrawl.WriteTimeline(f, tl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// record captures standard input over the timeline until the input ends.
func record(ctx context.Context, s *session.Session, sampleRate int) error {
	if err := s.StartRecording(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.ReadCapture(os.Stdin, s.Capture(), sampleRate) }()
	log.Printf("recording from standard input, interrupt or end the input to stop")
	var err error
	select {
	case <-ctx.Done():
	case err = <-done:
	}
	if err != nil {
		return err
	}
	return s.StopRecording()
}

func waitUntilPaused(ctx context.Context, s *session.Session) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() != session.Playing {
				return
			}
		}
	}
}

func autosaveWhileRecording(ctx context.Context, s *session.Session, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() == session.Recording {
				s.Broker().RequestAutosave(s.Snapshot())
			}
		}
	}
}

func logAlerts(ctx context.Context, broker *session.Broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-broker.Alerts:
			log.Printf("%v: %v", a.Priority, a.Message)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Scrawl command line utility for playing and narrating timelines.\nUsage: %s [flags] file.yml\n", os.Args[0])
	flag.PrintDefaults()
}
