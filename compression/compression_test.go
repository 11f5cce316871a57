package compression

import (
	"bytes"
	"testing"

	"github.com/protegrity/dbps/enums"
)

func TestUncompressedIsNoop(t *testing.T) {
	data := []byte("hello world")
	out, err := Compress(data, enums.Uncompressed)
	if err != nil || !bytes.Equal(out, data) {
		t.Fatalf("Compress uncompressed = %q, %v", out, err)
	}
	out, err = Decompress(data, enums.Uncompressed)
	if err != nil || !bytes.Equal(out, data) {
		t.Fatalf("Decompress uncompressed = %q, %v", out, err)
	}
}

func TestSnappyRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly")
	compressed, err := Compress(data, enums.Snappy)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, enums.Snappy)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSnappyDecompressGarbage(t *testing.T) {
	if _, err := Decompress([]byte{0xff, 0xff, 0xff, 0xff, 0x00}, enums.Snappy); err == nil {
		t.Fatal("expected InvalidInput for garbage snappy")
	}
}

func TestEmptyInputIsNoop(t *testing.T) {
	out, err := Compress(nil, enums.Snappy)
	if err != nil || len(out) != 0 {
		t.Fatalf("Compress empty = %v, %v", out, err)
	}
	out, err = Decompress(nil, enums.Snappy)
	if err != nil || len(out) != 0 {
		t.Fatalf("Decompress empty = %v, %v", out, err)
	}
}

func TestUnsupportedCodec(t *testing.T) {
	if _, err := Compress([]byte("x"), enums.Gzip); err == nil {
		t.Fatal("expected Unsupported for gzip")
	}
	if _, err := Decompress([]byte("x"), enums.Zstd); err == nil {
		t.Fatal("expected Unsupported for zstd")
	}
}
