//go:build cgo

package cmd

import (
	"io"

	"github.com/vsariola/scrawl/gomidi"
)

// OpenMIDI opens the first MIDI input whose name starts with prefix and
// sends its messages to t.
func OpenMIDI(prefix string, t *gomidi.Transport) (io.Closer, error) {
	return gomidi.OpenInput(prefix, t)
}

func MIDIInputs() ([]string, error) {
	return gomidi.InputNames()
}
