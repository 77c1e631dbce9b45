package audio

import (
	"encoding/binary"
	"math"
)

// Float32ToS16LE quantizes mono samples to int16 little-endian
// Samples outside [-1,1] are hard clipped here, never in the engine
// out must hold 2*len(in) bytes
func Float32ToS16LE(in []float32, out []byte) {
	for i, v := range in {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clipS16(v)))
	}
}

// Float32ToF32LE serializes mono samples as float32 little-endian
// out must hold 4*len(in) bytes
func Float32ToF32LE(in []float32, out []byte) {
	for i, v := range in {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
}

func clipS16(v float32) int16 {
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	} else if v != v {
		v = 0
	}
	return int16(v * 32767)
}
