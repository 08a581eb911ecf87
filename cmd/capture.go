package cmd

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/vsariola/scrawl/session"
)

// CaptureBlock is the number of samples read per block by ReadCapture.
const CaptureBlock = 960

// ReadCapture reads raw mono signed 16-bit little-endian PCM from r, e.g.
// piped from arecord, and pushes it to c in blocks. The device time of a
// block is derived from the number of samples read before it. It returns
// nil at the end of the input.
func ReadCapture(r io.Reader, c *session.Capture, sampleRate int) error {
	buf := make([]byte, 2*CaptureBlock)
	samples := make([]int16, CaptureBlock)
	var read int64
	for {
		n, err := io.ReadFull(r, buf)
		n /= 2
		for i := range n {
			samples[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
		}
		if n > 0 {
			c.Push(samples[:n], time.Duration(read)*time.Second/time.Duration(sampleRate))
			read += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
