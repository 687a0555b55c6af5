package db

import (
	"encoding/binary"
	"math"
)

// VectorBytes encodes a float32 vector as the little-endian FLOAT32 blob
// format FT.SEARCH and HSET vector fields expect.
func VectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
