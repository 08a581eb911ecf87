//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Input is an open MIDI input device feeding a Transport.
type Input struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
}

// InputNames lists the MIDI inputs of the system.
func InputNames() ([]string, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open MIDI driver: %w", err)
	}
	defer driver.Close()
	ins, err := driver.Ins()
	if err != nil {
		return nil, err
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret, nil
}

// OpenInput opens the first input whose name starts with namePrefix, or the
// first input if namePrefix is empty, and sends its messages to t.
func OpenInput(namePrefix string, t *Transport) (*Input, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("cannot open MIDI driver: %w", err)
	}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, err
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		if err := in.Open(); err != nil {
			driver.Close()
			return nil, fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, t.HandleMessage)
		if err != nil {
			in.Close()
			driver.Close()
			return nil, fmt.Errorf("listening to MIDI input failed: %w", err)
		}
		return &Input{driver: driver, in: in, stop: stop}, nil
	}
	driver.Close()
	if namePrefix == "" {
		return nil, errors.New("could not find any MIDI input")
	}
	return nil, fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

func (i *Input) String() string { return i.in.String() }

func (i *Input) Close() error {
	i.stop()
	i.in.Close()
	return i.driver.Close()
}
