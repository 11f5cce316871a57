// Package enums defines the Parquet-derived enumerations threaded through
// the sequencer, page codec, and wire schemas: element datatype, compression
// codec, and value encoding. Names intentionally mirror parquet::Type,
// arrow::Compression, and parquet::Encoding so that callers migrating from
// an Arrow/Parquet integration recognize them immediately.
package enums

import "fmt"

// Datatype identifies the type of a decoded Parquet element.
type Datatype int

const (
	Boolean Datatype = iota
	Int32
	Int64
	Int96
	Float
	Double
	ByteArray
	FixedLenByteArray
	UndefinedDatatype
)

var datatypeNames = map[Datatype]string{
	Boolean:           "BOOLEAN",
	Int32:             "INT32",
	Int64:             "INT64",
	Int96:             "INT96",
	Float:             "FLOAT",
	Double:            "DOUBLE",
	ByteArray:         "BYTE_ARRAY",
	FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
	UndefinedDatatype: "UNDEFINED",
}

func (d Datatype) String() string {
	if s, ok := datatypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Datatype(%d)", int(d))
}

// ParseDatatype maps a wire string (e.g. "BYTE_ARRAY") to a Datatype.
func ParseDatatype(s string) (Datatype, bool) {
	for k, v := range datatypeNames {
		if v == s {
			return k, true
		}
	}
	return UndefinedDatatype, false
}

// Codec identifies a Parquet page compression codec. Only Uncompressed and
// Snappy are implemented; the rest are recognized for wire compatibility and
// rejected by the compression adapter as Unsupported.
type Codec int

const (
	Uncompressed Codec = iota
	Snappy
	Gzip
	Brotli
	Zstd
	Lz4
	Lz4Frame
	Lzo
	Bz2
	Lz4Hadoop
)

var codecNames = map[Codec]string{
	Uncompressed: "UNCOMPRESSED",
	Snappy:       "SNAPPY",
	Gzip:         "GZIP",
	Brotli:       "BROTLI",
	Zstd:         "ZSTD",
	Lz4:          "LZ4",
	Lz4Frame:     "LZ4_FRAME",
	Lzo:          "LZO",
	Bz2:          "BZ2",
	Lz4Hadoop:    "LZ4_HADOOP",
}

func (c Codec) String() string {
	if s, ok := codecNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Codec(%d)", int(c))
}

// ParseCodec maps a wire string (e.g. "SNAPPY") to a Codec.
func ParseCodec(s string) (Codec, bool) {
	for k, v := range codecNames {
		if v == s {
			return k, true
		}
	}
	return Uncompressed, false
}

// Encoding identifies how Parquet values are encoded on the wire. Only
// Plain is supported for per-value operations; RleDictionary forces the
// sequencer's per-block fallback.
type Encoding int

const (
	Plain Encoding = iota
	PlainDictionary
	Rle
	BitPacked
	DeltaBinaryPacked
	DeltaLengthByteArray
	DeltaByteArray
	RleDictionary
	ByteStreamSplit
	UndefinedEncoding
	UnknownEncoding
)

var encodingNames = map[Encoding]string{
	Plain:                "PLAIN",
	PlainDictionary:      "PLAIN_DICTIONARY",
	Rle:                  "RLE",
	BitPacked:            "BIT_PACKED",
	DeltaBinaryPacked:    "DELTA_BINARY_PACKED",
	DeltaLengthByteArray: "DELTA_LENGTH_BYTE_ARRAY",
	DeltaByteArray:       "DELTA_BYTE_ARRAY",
	RleDictionary:        "RLE_DICTIONARY",
	ByteStreamSplit:      "BYTE_STREAM_SPLIT",
	UndefinedEncoding:    "UNDEFINED",
	UnknownEncoding:      "UNKNOWN",
}

func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding maps a wire string (e.g. "RLE_DICTIONARY") to an Encoding.
func ParseEncoding(s string) (Encoding, bool) {
	for k, v := range encodingNames {
		if v == s {
			return k, true
		}
	}
	return UnknownEncoding, false
}

// PageType identifies the Parquet page variant being processed.
type PageType int

const (
	DataPageV1 PageType = iota
	DataPageV2
	DictionaryPage
	UnknownPageType
)

var pageTypeNames = map[PageType]string{
	DataPageV1:     "DATA_PAGE_V1",
	DataPageV2:     "DATA_PAGE_V2",
	DictionaryPage: "DICTIONARY_PAGE",
}

func (p PageType) String() string {
	if s, ok := pageTypeNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PageType(%d)", int(p))
}

// ParsePageType maps a wire string (e.g. "DICTIONARY_PAGE") to a PageType.
func ParsePageType(s string) (PageType, bool) {
	for k, v := range pageTypeNames {
		if v == s {
			return k, true
		}
	}
	return UnknownPageType, false
}
