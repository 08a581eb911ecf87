package scrawl_test

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/vsariola/scrawl"
)

func ramp(n int, from int16) []int16 {
	ret := make([]int16, n)
	for i := range ret {
		ret[i] = from + int16(i)
	}
	return ret
}

func TestAppendChunkOverlap(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: 0, Samples: ramp(100, 1)}})
	before := tl.Copy()
	_, err := tl.Apply(scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: scrawl.FromSeconds(0.002083), Samples: ramp(100, 1)}})
	if !errors.Is(err, scrawl.ErrOverlap) {
		t.Fatalf("overlapping append: got %v, expected ErrOverlap", err)
	}
	if !tl.Equal(before) {
		t.Fatalf("failed append changed the audio track")
	}
}

func TestSilenceBuffer(t *testing.T) {
	rates := []int{44100, 48000}
	for _, rate := range rates {
		tl := scrawl.NewTimeline(rate)
		got, err := tl.SamplesInRange(scrawl.FromSeconds(1), scrawl.FromSeconds(3))
		if err != nil {
			t.Fatalf("SamplesInRange failed: %v", err)
		}
		if len(got) != 2*rate {
			t.Fatalf("silence at %d Hz: got %d samples, expected %d", rate, len(got), 2*rate)
		}
		for i, v := range got {
			if v != 0 {
				t.Fatalf("sample %d not silent: %d", i, v)
			}
		}
	}
	tl := scrawl.NewTimeline(48000)
	if _, err := tl.SamplesInRange(2, 1); !errors.Is(err, scrawl.ErrInvalidRange) {
		t.Fatalf("reversed range: got %v, expected ErrInvalidRange", err)
	}
}

func TestAudioGapsAndCoalescing(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	a := ramp(48, 1)
	b := ramp(48, 100)
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: 0, Samples: a}})
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: scrawl.FromSampleIndex(48, 48000), Samples: b}})
	if n := len(slices.Collect(tl.Audio().Chunks)); n != 1 {
		t.Fatalf("back to back chunks: got %d runs, expected 1", n)
	}
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: scrawl.FromSampleIndex(200, 48000), Samples: a}})
	got := make([]int16, 250)
	tl.ReadSamples(0, got)
	expected := append(append(append(slices.Clone(a), b...), make([]int16, 104)...), a[:2]...)
	if !slices.Equal(got[:len(expected)], expected) {
		t.Fatalf("read samples: got %v, expected %v", got[:len(expected)], expected)
	}
	if got := tl.Audio().EndIndex(); got != 248 {
		t.Fatalf("end index: got %d, expected 248", got)
	}
}

func TestTruncateAudioUndo(t *testing.T) {
	tl := scrawl.NewTimeline(48000)
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: 0, Samples: ramp(480, 0)}})
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: scrawl.FromSampleIndex(1000, 48000), Samples: ramp(480, 0)}})
	before := tl.Copy()
	inv := apply(t, tl, scrawl.TruncateAudio{At: scrawl.FromSampleIndex(240, 48000)})
	if got := tl.Audio().EndIndex(); got != 240 {
		t.Fatalf("end after truncation: got %d, expected 240", got)
	}
	apply(t, tl, scrawl.AppendChunk{Chunk: scrawl.Chunk{Start: scrawl.FromSampleIndex(240, 48000), Samples: ramp(10, 7)}})
	if _, err := tl.Apply(scrawl.UnappendChunk{Start: scrawl.FromSampleIndex(240, 48000), Len: 10}); err != nil {
		t.Fatalf("unappend failed: %v", err)
	}
	apply(t, tl, inv)
	if !tl.Equal(before) {
		t.Fatalf("restoring the truncation did not reproduce the audio")
	}
}

func TestWav(t *testing.T) {
	samples := []int16{0, 1, -1, 32767}
	for _, float := range []bool{false, true} {
		wav, err := scrawl.Wav(samples, 48000, float)
		if err != nil {
			t.Fatalf("Wav: %v", err)
		}
		header, width := 44, 2
		if float {
			header, width = 58, 4
		}
		if len(wav) != header+width*len(samples) {
			t.Fatalf("float=%v: got %d bytes, expected %d", float, len(wav), header+width*len(samples))
		}
		if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
			t.Fatalf("float=%v: bad magic %q", float, wav[:12])
		}
		if size := binary.LittleEndian.Uint32(wav[4:]); int(size) != len(wav)-8 {
			t.Errorf("float=%v: riff size %d, expected %d", float, size, len(wav)-8)
		}
		if string(wav[header-8:header-4]) != "data" {
			t.Errorf("float=%v: data chunk not at %d", float, header-8)
		}
	}
}
