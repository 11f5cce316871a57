package parquet

import (
	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/compression"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
)

// CalculateLevelBytesLength returns the number of bytes at the front of raw
// occupied by definition/repetition level data, per page variant. For
// DATA_PAGE_V1 it walks the RLE-prefixed blocks actually present in raw.
func CalculateLevelBytesLength(raw []byte, attrs Attrs) (int, error) {
	switch attrs.PageType {
	case enums.DictionaryPage:
		return 0, nil

	case enums.DataPageV2:
		n := attrs.PageV2DefinitionLevelsByteLength + attrs.PageV2RepetitionLevelsByteLength
		if n < 0 || n > len(raw) {
			return 0, dbpserr.NewInvalidInput("parquet: v2 level length %d out of range for %d raw bytes", n, len(raw))
		}
		return n, nil

	case enums.DataPageV1:
		offset := 0
		consume := func(maxLevel int) error {
			if maxLevel <= 0 {
				return nil
			}
			if offset+4 > len(raw) {
				return dbpserr.NewInvalidInput("parquet: v1 level block truncated at offset %d", offset)
			}
			blockLen := int(bytesutil.ReadUint32LE(raw, offset))
			if blockLen < 0 || offset+4+blockLen > len(raw) {
				return dbpserr.NewInvalidInput("parquet: v1 level block length %d exceeds remaining bytes", blockLen)
			}
			offset += 4 + blockLen
			return nil
		}
		if err := consume(attrs.DataPageMaxRepetitionLevel); err != nil {
			return 0, err
		}
		if err := consume(attrs.DataPageMaxDefinitionLevel); err != nil {
			return 0, err
		}
		return offset, nil

	default:
		return 0, dbpserr.NewInvalidInput("parquet: unrecognised page_type %s", attrs.PageType)
	}
}

// DecompressAndSplit separates plaintext into (level_bytes, value_bytes),
// applying the per-variant decompression rule.
func DecompressAndSplit(plaintext []byte, codec enums.Codec, attrs Attrs) (level, value []byte, err error) {
	switch attrs.PageType {
	case enums.DataPageV1:
		decompressed, err := compression.Decompress(plaintext, codec)
		if err != nil {
			return nil, nil, err
		}
		n, err := CalculateLevelBytesLength(decompressed, attrs)
		if err != nil {
			return nil, nil, err
		}
		return bytesutil.Split(decompressed, n)

	case enums.DataPageV2:
		n, err := CalculateLevelBytesLength(plaintext, attrs)
		if err != nil {
			return nil, nil, err
		}
		level, value, err = bytesutil.Split(plaintext, n)
		if err != nil {
			return nil, nil, err
		}
		if attrs.PageV2IsCompressed {
			value, err = compression.Decompress(value, codec)
			if err != nil {
				return nil, nil, err
			}
		}
		return level, value, nil

	case enums.DictionaryPage:
		value, err = compression.Decompress(plaintext, codec)
		if err != nil {
			return nil, nil, err
		}
		return nil, value, nil

	default:
		return nil, nil, dbpserr.NewInvalidInput("parquet: unrecognised page_type %s", attrs.PageType)
	}
}

// CompressAndJoin is the inverse of DecompressAndSplit.
func CompressAndJoin(level, value []byte, codec enums.Codec, attrs Attrs) ([]byte, error) {
	wantLevelLen, err := CalculateLevelBytesLength(level, attrs)
	if err != nil {
		return nil, err
	}
	if len(level) != wantLevelLen {
		return nil, dbpserr.NewInvalidInput(
			"parquet: level_bytes length %d does not match computed length %d", len(level), wantLevelLen)
	}

	switch attrs.PageType {
	case enums.DataPageV1:
		joined := bytesutil.Join(level, value)
		return compression.Compress(joined, codec)

	case enums.DataPageV2:
		if attrs.PageV2IsCompressed {
			compressed, err := compression.Compress(value, codec)
			if err != nil {
				return nil, err
			}
			return bytesutil.Join(level, compressed), nil
		}
		return bytesutil.Join(level, value), nil

	case enums.DictionaryPage:
		return compression.Compress(value, codec)

	default:
		return nil, dbpserr.NewInvalidInput("parquet: unrecognised page_type %s", attrs.PageType)
	}
}
