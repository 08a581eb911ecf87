// Package gomidi controls a session from a MIDI device: notes trigger
// transport commands and a control change scrubs through the timeline.
package gomidi

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/vsariola/scrawl"
	"github.com/vsariola/scrawl/session"
)

type (
	// Controller is what MIDI commands act on; *session.Session implements
	// it.
	Controller interface {
		TogglePlayback() error
		ToggleRecording() error
		Halt() error
		Undo() error
		Redo() error
		ScrubFraction(f float64) error
	}

	// Bindings maps note numbers to commands and a controller number to
	// scrubbing. A negative value leaves the command unbound.
	Bindings struct {
		Channel   int `yaml:"channel"` // negative for any channel
		PlayPause int `yaml:"play_pause"`
		Record    int `yaml:"record"`
		Stop      int `yaml:"stop"`
		Undo      int `yaml:"undo"`
		Redo      int `yaml:"redo"`
		ScrubCC   int `yaml:"scrub_cc"`
	}

	// Transport receives messages from a MIDI input and applies them to a
	// controller. HandleMessage can be called from the driver callback; the
	// commands run in Run.
	Transport struct {
		controller Controller
		bindings   Bindings
		broker     *session.Broker
		events     chan midi.Message
	}
)

var DefaultBindings = Bindings{Channel: -1, PlayPause: 60, Record: 62, Stop: 64, Undo: 65, Redo: 67, ScrubCC: 1}

func NewTransport(c Controller, b Bindings, broker *session.Broker) *Transport {
	return &Transport{controller: c, bindings: b, broker: broker, events: make(chan midi.Message, 1024)}
}

// HandleMessage queues msg. If the queue is full, the message is dropped.
func (t *Transport) HandleMessage(msg midi.Message, timestampms int32) {
	select {
	case t.events <- msg:
	default:
	}
}

// Run dispatches the queued messages until ctx is done.
func (t *Transport) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.events:
			if err := t.Dispatch(msg); err != nil {
				if errors.Is(err, scrawl.ErrNothingToUndo) || errors.Is(err, scrawl.ErrNothingToRedo) {
					continue
				}
				t.broker.SendAlert("MIDI", fmt.Sprintf("MIDI command failed: %v", err), session.Warning)
			}
		}
	}
}

// Dispatch applies one message. Messages that are not bound are ignored.
func (t *Transport) Dispatch(msg midi.Message) error {
	var channel, key, velocity, cc, value uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 || !t.onChannel(channel) {
			return nil
		}
		return t.note(int(key))
	case msg.GetControlChange(&channel, &cc, &value):
		if !t.onChannel(channel) || int(cc) != t.bindings.ScrubCC {
			return nil
		}
		return t.controller.ScrubFraction(float64(value) / 127)
	}
	return nil
}

func (t *Transport) onChannel(channel uint8) bool {
	return t.bindings.Channel < 0 || int(channel) == t.bindings.Channel
}

func (t *Transport) note(key int) error {
	switch key {
	case t.bindings.PlayPause:
		return t.controller.TogglePlayback()
	case t.bindings.Record:
		return t.controller.ToggleRecording()
	case t.bindings.Stop:
		return t.controller.Halt()
	case t.bindings.Undo:
		return t.controller.Undo()
	case t.bindings.Redo:
		return t.controller.Redo()
	}
	return nil
}
