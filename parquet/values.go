package parquet

import (
	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/typedvalue"
)

func elementWidth(datatype enums.Datatype, length int) (int, error) {
	switch datatype {
	case enums.Int32, enums.Float:
		return 4, nil
	case enums.Int64, enums.Double:
		return 8, nil
	case enums.Int96:
		return 12, nil
	case enums.FixedLenByteArray:
		if length <= 0 {
			return 0, dbpserr.NewValidation("parquet: FIXED_LEN_BYTE_ARRAY requires a positive length")
		}
		return length, nil
	default:
		return 0, dbpserr.NewUnsupported("parquet: datatype %s has no fixed element width", datatype)
	}
}

// SliceValueBytes splits raw value bytes into one slice per element,
// per datatype and encoding. Only PLAIN encoding is supported; everything
// else (notably RLE_DICTIONARY) fails Unsupported to trigger fallback.
func SliceValueBytes(raw []byte, datatype enums.Datatype, length int, encoding enums.Encoding) ([][]byte, error) {
	if encoding != enums.Plain {
		return nil, dbpserr.NewUnsupported("parquet: encoding %s not supported for per-value slicing", encoding)
	}

	if datatype == enums.ByteArray {
		var out [][]byte
		offset := 0
		for offset < len(raw) {
			if offset+4 > len(raw) {
				return nil, dbpserr.NewInvalidInput("parquet: truncated BYTE_ARRAY record at offset %d", offset)
			}
			n := int(bytesutil.ReadUint32LE(raw, offset))
			offset += 4
			if n < 0 || offset+n > len(raw) {
				return nil, dbpserr.NewInvalidInput("parquet: BYTE_ARRAY record length %d exceeds remaining bytes", n)
			}
			out = append(out, raw[offset:offset+n])
			offset += n
		}
		return out, nil
	}

	if datatype == enums.Boolean {
		return nil, dbpserr.NewUnsupported("parquet: BOOLEAN not supported at per-value granularity")
	}

	width, err := elementWidth(datatype, length)
	if err != nil {
		return nil, err
	}
	if len(raw)%width != 0 {
		return nil, dbpserr.NewInvalidInput("parquet: value bytes length %d not a multiple of element width %d", len(raw), width)
	}
	n := len(raw) / width
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = raw[i*width : (i+1)*width]
	}
	return out, nil
}

// CombineRawBytes is the structural inverse of SliceValueBytes.
func CombineRawBytes(elements [][]byte, datatype enums.Datatype, length int, encoding enums.Encoding) ([]byte, error) {
	if encoding != enums.Plain {
		return nil, dbpserr.NewUnsupported("parquet: encoding %s not supported for per-value combining", encoding)
	}

	if datatype == enums.ByteArray {
		var out []byte
		for _, e := range elements {
			out = bytesutil.AppendUint32LE(out, uint32(len(e)))
			out = append(out, e...)
		}
		return out, nil
	}

	if datatype == enums.Boolean {
		return nil, dbpserr.NewUnsupported("parquet: BOOLEAN not supported at per-value granularity")
	}

	width, err := elementWidth(datatype, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, width*len(elements))
	for i, e := range elements {
		if len(e) != width {
			return nil, dbpserr.NewInvalidInput("parquet: element %d has width %d, want %d", i, len(e), width)
		}
		out = append(out, e...)
	}
	return out, nil
}

// ParseValueBytesIntoTypedList slices raw value bytes and builds the typed
// list in one step.
func ParseValueBytesIntoTypedList(raw []byte, datatype enums.Datatype, length int, encoding enums.Encoding) (typedvalue.List, error) {
	elements, err := SliceValueBytes(raw, datatype, length, encoding)
	if err != nil {
		return typedvalue.List{}, err
	}
	return typedvalue.FromRawBytes(datatype, elements)
}

// GetTypedListAsValueBytes is the inverse of ParseValueBytesIntoTypedList.
func GetTypedListAsValueBytes(list typedvalue.List, datatype enums.Datatype, length int, encoding enums.Encoding) ([]byte, error) {
	elements, err := typedvalue.ToRawBytes(list)
	if err != nil {
		return nil, err
	}
	return CombineRawBytes(elements, datatype, length, encoding)
}
