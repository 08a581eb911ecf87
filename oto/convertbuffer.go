package oto

import "encoding/binary"

// Int16BufferToLE appends the samples to dst as 16-bit little-endian bytes.
func Int16BufferToLE(buff []int16, dst []byte) []byte {
	for _, v := range buff {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	return dst
}
