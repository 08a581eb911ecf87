package cmd_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/vsariola/scrawl/cmd"
	"github.com/vsariola/scrawl/session"
)

func TestReadCapture(t *testing.T) {
	var b bytes.Buffer
	for i := range cmd.CaptureBlock + 10 {
		binary.Write(&b, binary.LittleEndian, int16(i-500))
	}
	c := session.NewCapture(4*cmd.CaptureBlock, 48000, session.NewBroker())
	if err := cmd.ReadCapture(&b, c, 48000); err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if q := c.Queued(); q != cmd.CaptureBlock+10 {
		t.Fatalf("queued %d samples, expected %d", q, cmd.CaptureBlock+10)
	}
}
