// Package bytesutil provides the little-endian encoding primitives and
// length-prefixed join/split helpers that the parquet page codec and the
// encryption sequencer build on.
package bytesutil

import (
	"encoding/binary"
	"math"

	"github.com/protegrity/dbps/dbpserr"
)

// AppendUint32LE appends v to out in little-endian form.
func AppendUint32LE(out []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}

// AppendInt32LE appends v to out in little-endian form.
func AppendInt32LE(out []byte, v int32) []byte {
	return AppendUint32LE(out, uint32(v))
}

// AppendUint64LE appends v to out in little-endian form.
func AppendUint64LE(out []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(out, b[:]...)
}

// AppendInt64LE appends v to out in little-endian form.
func AppendInt64LE(out []byte, v int64) []byte {
	return AppendUint64LE(out, uint64(v))
}

// AppendFloat32LE appends the IEEE-754 bit pattern of v in little-endian form.
func AppendFloat32LE(out []byte, v float32) []byte {
	return AppendUint32LE(out, math.Float32bits(v))
}

// AppendFloat64LE appends the IEEE-754 bit pattern of v in little-endian form.
func AppendFloat64LE(out []byte, v float64) []byte {
	return AppendUint64LE(out, math.Float64bits(v))
}

// ReadUint32LE reads a little-endian uint32 at offset. Callers must ensure
// offset+4 <= len(in).
func ReadUint32LE(in []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(in[offset : offset+4])
}

// ReadInt32LE reads a little-endian int32 at offset.
func ReadInt32LE(in []byte, offset int) int32 {
	return int32(ReadUint32LE(in, offset))
}

// ReadUint64LE reads a little-endian uint64 at offset.
func ReadUint64LE(in []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(in[offset : offset+8])
}

// ReadFloat32LE reads a little-endian float32 at offset.
func ReadFloat32LE(in []byte, offset int) float32 {
	return math.Float32frombits(ReadUint32LE(in, offset))
}

// ReadFloat64LE reads a little-endian float64 at offset.
func ReadFloat64LE(in []byte, offset int) float64 {
	return math.Float64frombits(ReadUint64LE(in, offset))
}

// Join concatenates leading and trailing into a single new slice.
func Join(leading, trailing []byte) []byte {
	out := make([]byte, 0, len(leading)+len(trailing))
	out = append(out, leading...)
	out = append(out, trailing...)
	return out
}

// Split divides bytes into [0,n) and [n,len). It fails with InvalidInput
// when n is outside [0, len(bytes)].
func Split(data []byte, n int) (leading, trailing []byte, err error) {
	if n < 0 || n > len(data) {
		return nil, nil, dbpserr.NewInvalidInput("bytesutil: split index %d out of range [0, %d]", n, len(data))
	}
	return data[:n:n], data[n:], nil
}

// JoinWithLengthPrefix produces [u32_le len(leading)][leading][trailing],
// making the split point self-describing. Fails when leading would overflow
// the 32-bit length prefix.
func JoinWithLengthPrefix(leading, trailing []byte) ([]byte, error) {
	if uint64(len(leading)) > math.MaxUint32 {
		return nil, dbpserr.NewInvalidInput("bytesutil: leading length %d exceeds uint32 range", len(leading))
	}
	out := make([]byte, 0, 4+len(leading)+len(trailing))
	out = AppendUint32LE(out, uint32(len(leading)))
	out = append(out, leading...)
	out = append(out, trailing...)
	return out, nil
}

// SplitWithLengthPrefix is the inverse of JoinWithLengthPrefix.
func SplitWithLengthPrefix(data []byte) (leading, trailing []byte, err error) {
	if len(data) < 4 {
		return nil, nil, dbpserr.NewInvalidInput("bytesutil: length-prefixed data shorter than the 4-byte prefix")
	}
	leadLen := int(ReadUint32LE(data, 0))
	if len(data) < 4+leadLen {
		return nil, nil, dbpserr.NewInvalidInput(
			"bytesutil: length-prefixed data truncated: want %d leading bytes, have %d", leadLen, len(data)-4)
	}
	leading = data[4 : 4+leadLen]
	trailing = data[4+leadLen:]
	return leading, trailing, nil
}
