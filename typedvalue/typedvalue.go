// Package typedvalue converts between raw per-element byte slices and a
// tagged union of typed vectors, mirroring the Parquet in-memory
// representations the sequencer encrypts element-by-element.
package typedvalue

import (
	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
)

// Int96 is three little-endian uint32 words (lo, mid, hi), matching
// Parquet's legacy 96-bit integer layout.
type Int96 [3]uint32

// List is a tagged union over the element vectors the sequencer supports.
// Exactly one of the slices is populated, selected by Datatype.
type List struct {
	Datatype enums.Datatype
	Int32s   []int32
	Int64s   []int64
	Int96s   []Int96
	Float32s []float32
	Float64s []float64
	// Bytes backs both BYTE_ARRAY (variable length) and
	// FIXED_LEN_BYTE_ARRAY (uniform length, enforced by the caller).
	Bytes [][]byte
}

// Len returns the number of elements in the populated vector.
func (l List) Len() int {
	switch l.Datatype {
	case enums.Int32:
		return len(l.Int32s)
	case enums.Int64:
		return len(l.Int64s)
	case enums.Int96:
		return len(l.Int96s)
	case enums.Float:
		return len(l.Float32s)
	case enums.Double:
		return len(l.Float64s)
	case enums.ByteArray, enums.FixedLenByteArray:
		return len(l.Bytes)
	default:
		return 0
	}
}

// FromRawBytes builds a List from a slice of raw per-element byte slices,
// enforcing the exact element width for fixed-width datatypes.
func FromRawBytes(datatype enums.Datatype, elements [][]byte) (List, error) {
	switch datatype {
	case enums.Int32:
		out := make([]int32, len(elements))
		for i, e := range elements {
			if len(e) != 4 {
				return List{}, dbpserr.NewInvalidInput("typedvalue: INT32 element %d has width %d, want 4", i, len(e))
			}
			out[i] = bytesutil.ReadInt32LE(e, 0)
		}
		return List{Datatype: datatype, Int32s: out}, nil

	case enums.Int64:
		out := make([]int64, len(elements))
		for i, e := range elements {
			if len(e) != 8 {
				return List{}, dbpserr.NewInvalidInput("typedvalue: INT64 element %d has width %d, want 8", i, len(e))
			}
			out[i] = int64(bytesutil.ReadUint64LE(e, 0))
		}
		return List{Datatype: datatype, Int64s: out}, nil

	case enums.Int96:
		out := make([]Int96, len(elements))
		for i, e := range elements {
			if len(e) != 12 {
				return List{}, dbpserr.NewInvalidInput("typedvalue: INT96 element %d has width %d, want 12", i, len(e))
			}
			out[i] = Int96{
				bytesutil.ReadUint32LE(e, 0),
				bytesutil.ReadUint32LE(e, 4),
				bytesutil.ReadUint32LE(e, 8),
			}
		}
		return List{Datatype: datatype, Int96s: out}, nil

	case enums.Float:
		out := make([]float32, len(elements))
		for i, e := range elements {
			if len(e) != 4 {
				return List{}, dbpserr.NewInvalidInput("typedvalue: FLOAT element %d has width %d, want 4", i, len(e))
			}
			out[i] = bytesutil.ReadFloat32LE(e, 0)
		}
		return List{Datatype: datatype, Float32s: out}, nil

	case enums.Double:
		out := make([]float64, len(elements))
		for i, e := range elements {
			if len(e) != 8 {
				return List{}, dbpserr.NewInvalidInput("typedvalue: DOUBLE element %d has width %d, want 8", i, len(e))
			}
			out[i] = bytesutil.ReadFloat64LE(e, 0)
		}
		return List{Datatype: datatype, Float64s: out}, nil

	case enums.ByteArray, enums.FixedLenByteArray:
		out := make([][]byte, len(elements))
		for i, e := range elements {
			cp := make([]byte, len(e))
			copy(cp, e)
			out[i] = cp
		}
		return List{Datatype: datatype, Bytes: out}, nil

	default:
		return List{}, dbpserr.NewInvalidInput("typedvalue: unsupported datatype %s", datatype)
	}
}

// ToRawBytes is the inverse of FromRawBytes: it emits one little-endian raw
// byte slice per element.
func ToRawBytes(list List) ([][]byte, error) {
	switch list.Datatype {
	case enums.Int32:
		out := make([][]byte, len(list.Int32s))
		for i, v := range list.Int32s {
			out[i] = bytesutil.AppendInt32LE(nil, v)
		}
		return out, nil

	case enums.Int64:
		out := make([][]byte, len(list.Int64s))
		for i, v := range list.Int64s {
			out[i] = bytesutil.AppendInt64LE(nil, v)
		}
		return out, nil

	case enums.Int96:
		out := make([][]byte, len(list.Int96s))
		for i, v := range list.Int96s {
			var b []byte
			b = bytesutil.AppendUint32LE(b, v[0])
			b = bytesutil.AppendUint32LE(b, v[1])
			b = bytesutil.AppendUint32LE(b, v[2])
			out[i] = b
		}
		return out, nil

	case enums.Float:
		out := make([][]byte, len(list.Float32s))
		for i, v := range list.Float32s {
			out[i] = bytesutil.AppendFloat32LE(nil, v)
		}
		return out, nil

	case enums.Double:
		out := make([][]byte, len(list.Float64s))
		for i, v := range list.Float64s {
			out[i] = bytesutil.AppendFloat64LE(nil, v)
		}
		return out, nil

	case enums.ByteArray, enums.FixedLenByteArray:
		out := make([][]byte, len(list.Bytes))
		for i, v := range list.Bytes {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[i] = cp
		}
		return out, nil

	default:
		return nil, dbpserr.NewInvalidInput("typedvalue: unsupported datatype %s", list.Datatype)
	}
}
