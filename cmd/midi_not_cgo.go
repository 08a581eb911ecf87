//go:build !cgo

package cmd

import (
	"errors"
	"io"

	"github.com/vsariola/scrawl/gomidi"
)

// without cgo there is no rtmidi driver
var errNoMIDI = errors.New("MIDI is not available in builds without cgo")

func OpenMIDI(prefix string, t *gomidi.Transport) (io.Closer, error) {
	return nil, errNoMIDI
}

func MIDIInputs() ([]string, error) {
	return nil, errNoMIDI
}
