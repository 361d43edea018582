package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToBytesLE converts a []float32 sample buffer to the
// little-endian byte layout oto's FormatFloat32LE players read.
func FloatBufferToBytesLE(buffer []float32) []byte {
	out := make([]byte, 4*len(buffer))
	for i, v := range buffer {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}
