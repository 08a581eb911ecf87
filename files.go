package scrawl

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const SaveFileVersion = 1

type (
	// SaveFile is the persisted form of a Timeline. It holds the timeline
	// compacted into one append per visible stroke and audio run; loading
	// replays these through Apply.
	SaveFile struct {
		Version    int      `yaml:"version"`
		SampleRate int      `yaml:"sample_rate"`
		Aspect     [2]int   `yaml:"aspect,flow"`
		Strokes    []Stroke `yaml:"strokes,omitempty"`
		Audio      []Chunk  `yaml:"audio,omitempty"`
		Markers    []Marker `yaml:"markers,omitempty"`
	}

	chunkYAML struct {
		Start   Time      `yaml:"start"`
		Samples yaml.Node `yaml:"samples"`
	}
)

var DefaultAspect = [2]int{4, 3}

// SaveFile returns the persisted form of the timeline. Strokes that are never
// visible and hidden audio are left out.
func (t *Timeline) SaveFile() SaveFile {
	f := SaveFile{Version: SaveFileVersion, SampleRate: t.SampleRate(), Aspect: DefaultAspect}
	for s := range t.curves.All() {
		if s.Live() {
			c := s.Copy()
			c.Open = false
			f.Strokes = append(f.Strokes, c)
		}
	}
	for c := range t.audio.Chunks {
		f.Audio = append(f.Audio, Chunk{Start: c.Start, Samples: append([]int16(nil), c.Samples...)})
	}
	for m := range t.Markers() {
		if m.Kind == FadeMarker {
			if s, ok := t.curves.Stroke(m.Stroke); !ok || !s.Live() {
				continue
			}
		}
		f.Markers = append(f.Markers, m)
	}
	return f
}

// Edits returns the edits that rebuild the saved timeline from empty.
func (f *SaveFile) Edits() Group {
	ret := make(Group, 0, len(f.Strokes)+len(f.Audio)+len(f.Markers))
	for _, s := range f.Strokes {
		ret = append(ret, AppendStroke{s})
	}
	for _, c := range f.Audio {
		ret = append(ret, AppendChunk{c})
	}
	for _, m := range f.Markers {
		ret = append(ret, AddMarker{m})
	}
	return ret
}

// Timeline replays the save file into a new timeline.
func (f *SaveFile) Timeline() (*Timeline, error) {
	if f.Version != SaveFileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	t := NewTimeline(f.SampleRate)
	if _, err := t.Apply(f.Edits()); err != nil {
		return nil, fmt.Errorf("could not replay save file: %w", err)
	}
	return t, nil
}

func WriteTimeline(w io.Writer, t *Timeline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t.SaveFile()); err != nil {
		return fmt.Errorf("could not encode timeline: %w", err)
	}
	return enc.Close()
}

func ReadTimeline(r io.Reader) (*Timeline, error) {
	var f SaveFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode timeline: %w", err)
	}
	return f.Timeline()
}

func (c Chunk) MarshalYAML() (any, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, c.Samples); err != nil {
		return nil, fmt.Errorf("could not encode audio samples: %w", err)
	}
	return chunkYAML{
		Start:   c.Start,
		Samples: yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(buf.Bytes())},
	}, nil
}

func (c *Chunk) UnmarshalYAML(value *yaml.Node) error {
	var y chunkYAML
	if err := value.Decode(&y); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(y.Samples.Value), ""))
	if err != nil {
		return fmt.Errorf("could not decode audio samples: %w", err)
	}
	if len(raw)%2 != 0 {
		return fmt.Errorf("audio samples have odd byte length %d", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("could not decode audio samples: %w", err)
	}
	*c = Chunk{Start: y.Start, Samples: samples}
	return nil
}
