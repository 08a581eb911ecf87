// Package oto plays timeline audio through github.com/ebitengine/oto/v3.
package oto

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"

	"github.com/vsariola/scrawl"
)

type OtoContext struct {
	context *oto.Context
}

type OtoOutput struct {
	player    *oto.Player
	writer    *io.PipeWriter
	tmpBuffer []byte
}

const otoBufferSize = 8192 // bytes

// NewContext opens the default audio device for mono 16-bit audio at the
// sample rate and waits until it is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

// Output starts a player fed by the returned sink.
func (c *OtoContext) Output() scrawl.AudioSink {
	r, w := io.Pipe()
	p := c.context.NewPlayer(r)
	p.SetBufferSize(otoBufferSize)
	p.Play()
	return &OtoOutput{player: p, writer: w}
}

// Close suspends the device; oto contexts cannot be reopened within a
// process.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio blocks until the player has taken the samples.
func (o *OtoOutput) WriteAudio(buffer []int16) error {
	// we reuse the old capacity tmpBuffer by setting its length to zero. then,
	// we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = Int16BufferToLE(buffer, o.tmpBuffer[:0])
	if _, err := o.writer.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close disposes of resources
func (o *OtoOutput) Close() error {
	o.writer.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
