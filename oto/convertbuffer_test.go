package oto_test

import (
	"bytes"
	"testing"

	"github.com/vsariola/scrawl/oto"
)

func TestInt16BufferToLE(t *testing.T) {
	got := oto.Int16BufferToLE([]int16{1, -1, 0x1234}, []byte{9})
	expected := []byte{9, 1, 0, 0xff, 0xff, 0x34, 0x12}
	if !bytes.Equal(got, expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
}
