package scrawl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// wavFormat is the fmt chunk of a mono WAVE file, including the extension
// size field used by the float format.
type wavFormat struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Wav encodes mono samples as a .wav file. If float is true, the samples are
// stored as IEEE float32, otherwise as 16-bit PCM.
func Wav(samples []int16, sampleRate int, float bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWav(&buf, samples, sampleRate, float); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWav writes samples to w as a mono .wav file.
func WriteWav(w io.Writer, samples []int16, sampleRate int, float bool) error {
	// See http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	f := wavFormat{Format: wavFormatPCM, Channels: 1, SampleRate: uint32(sampleRate), BitsPerSample: 16}
	var data any = samples
	if float {
		f.Format, f.BitsPerSample = wavFormatFloat, 32
		floats := make([]float32, len(samples))
		for i, v := range samples {
			floats[i] = float32(v) / math.MaxInt16
		}
		data = floats
	}
	f.BlockAlign = f.BitsPerSample / 8
	f.ByteRate = f.SampleRate * uint32(f.BlockAlign)
	dataSize := uint32(len(samples)) * uint32(f.BlockAlign)

	var hdr bytes.Buffer
	le := binary.LittleEndian
	hdr.WriteString("WAVE")
	if float {
		// non-PCM formats have an extension size field and a fact chunk
		hdr.WriteString("fmt ")
		binary.Write(&hdr, le, uint32(18))
		binary.Write(&hdr, le, f)
		binary.Write(&hdr, le, uint16(0))
		hdr.WriteString("fact")
		binary.Write(&hdr, le, [2]uint32{4, uint32(len(samples))})
	} else {
		hdr.WriteString("fmt ")
		binary.Write(&hdr, le, uint32(16))
		binary.Write(&hdr, le, f)
	}
	hdr.WriteString("data")
	binary.Write(&hdr, le, dataSize)

	if _, err := io.WriteString(w, "RIFF"); err != nil {
		return fmt.Errorf("could not write wav header: %w", err)
	}
	if err := binary.Write(w, le, uint32(hdr.Len())+dataSize); err != nil {
		return fmt.Errorf("could not write wav header: %w", err)
	}
	if _, err := hdr.WriteTo(w); err != nil {
		return fmt.Errorf("could not write wav header: %w", err)
	}
	if err := binary.Write(w, le, data); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	return nil
}
