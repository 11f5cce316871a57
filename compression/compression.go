// Package compression provides a uniform compress/decompress adapter over
// the Parquet codec enumeration. Only UNCOMPRESSED and SNAPPY are
// implemented; every other codec is rejected as Unsupported so the
// sequencer can trigger its per-block fallback.
package compression

import (
	"github.com/golang/snappy"

	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
)

// Compress returns data compressed under codec. UNCOMPRESSED and empty
// input are no-ops.
func Compress(data []byte, codec enums.Codec) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	switch codec {
	case enums.Uncompressed:
		return data, nil
	case enums.Snappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, dbpserr.NewUnsupported("compression: codec %s not supported", codec)
	}
}

// Decompress is the inverse of Compress.
func Decompress(data []byte, codec enums.Codec) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	switch codec {
	case enums.Uncompressed:
		return data, nil
	case enums.Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, dbpserr.NewInvalidInput("compression: malformed snappy block: %v", err)
		}
		return out, nil
	default:
		return nil, dbpserr.NewUnsupported("compression: codec %s not supported", codec)
	}
}
