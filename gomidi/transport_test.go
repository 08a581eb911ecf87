package gomidi_test

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/vsariola/scrawl/gomidi"
)

type recorder struct {
	calls []string
	scrub float64
}

func (r *recorder) TogglePlayback() error  { r.calls = append(r.calls, "play"); return nil }
func (r *recorder) ToggleRecording() error { r.calls = append(r.calls, "record"); return nil }
func (r *recorder) Halt() error            { r.calls = append(r.calls, "stop"); return nil }
func (r *recorder) Undo() error            { r.calls = append(r.calls, "undo"); return nil }
func (r *recorder) Redo() error            { r.calls = append(r.calls, "redo"); return nil }
func (r *recorder) ScrubFraction(f float64) error {
	r.calls = append(r.calls, "scrub")
	r.scrub = f
	return nil
}

func TestDispatch(t *testing.T) {
	var r recorder
	b := gomidi.DefaultBindings
	tr := gomidi.NewTransport(&r, b, nil)
	msgs := []midi.Message{
		midi.NoteOn(0, uint8(b.Record), 100),
		midi.NoteOn(3, uint8(b.PlayPause), 100),
		midi.NoteOn(0, uint8(b.Undo), 0), // note off in disguise
		midi.NoteOff(0, uint8(b.Stop)),
		midi.NoteOn(0, 1, 100), // unbound
		midi.ControlChange(0, uint8(b.ScrubCC), 127),
		midi.ControlChange(0, 7, 10),
		midi.NoteOn(0, uint8(b.Redo), 1),
	}
	for _, m := range msgs {
		if err := tr.Dispatch(m); err != nil {
			t.Fatalf("Dispatch(%v): %v", m, err)
		}
	}
	expected := []string{"record", "play", "scrub", "redo"}
	if len(r.calls) != len(expected) {
		t.Fatalf("got calls %v, expected %v", r.calls, expected)
	}
	for i := range expected {
		if r.calls[i] != expected[i] {
			t.Fatalf("got calls %v, expected %v", r.calls, expected)
		}
	}
	if r.scrub != 1 {
		t.Fatalf("scrub fraction %v, expected 1", r.scrub)
	}
}

func TestChannelFilter(t *testing.T) {
	var r recorder
	b := gomidi.DefaultBindings
	b.Channel = 2
	tr := gomidi.NewTransport(&r, b, nil)
	tr.Dispatch(midi.NoteOn(0, uint8(b.PlayPause), 100))
	tr.Dispatch(midi.NoteOn(2, uint8(b.PlayPause), 100))
	if len(r.calls) != 1 {
		t.Fatalf("got calls %v, expected one from channel 2", r.calls)
	}
}
