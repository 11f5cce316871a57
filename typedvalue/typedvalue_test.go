package typedvalue

import (
	"bytes"
	"testing"

	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/enums"
)

func TestRoundTripInt32(t *testing.T) {
	elements := [][]byte{
		bytesutil.AppendInt32LE(nil, 1),
		bytesutil.AppendInt32LE(nil, -7),
	}
	list, err := FromRawBytes(enums.Int32, elements)
	if err != nil {
		t.Fatalf("FromRawBytes: %v", err)
	}
	if list.Len() != 2 || list.Int32s[0] != 1 || list.Int32s[1] != -7 {
		t.Fatalf("unexpected list %+v", list)
	}
	back, err := ToRawBytes(list)
	if err != nil {
		t.Fatalf("ToRawBytes: %v", err)
	}
	for i := range elements {
		if !bytes.Equal(elements[i], back[i]) {
			t.Fatalf("element %d: got %x want %x", i, back[i], elements[i])
		}
	}
}

func TestRoundTripByteArray(t *testing.T) {
	elements := [][]byte{[]byte("apple"), []byte("banana")}
	list, err := FromRawBytes(enums.ByteArray, elements)
	if err != nil {
		t.Fatalf("FromRawBytes: %v", err)
	}
	back, err := ToRawBytes(list)
	if err != nil {
		t.Fatalf("ToRawBytes: %v", err)
	}
	for i := range elements {
		if !bytes.Equal(elements[i], back[i]) {
			t.Fatalf("element %d mismatch", i)
		}
	}
}

func TestRoundTripInt96(t *testing.T) {
	var el []byte
	el = bytesutil.AppendUint32LE(el, 1)
	el = bytesutil.AppendUint32LE(el, 2)
	el = bytesutil.AppendUint32LE(el, 3)
	list, err := FromRawBytes(enums.Int96, [][]byte{el})
	if err != nil {
		t.Fatalf("FromRawBytes: %v", err)
	}
	if list.Int96s[0] != (Int96{1, 2, 3}) {
		t.Fatalf("unexpected Int96: %+v", list.Int96s[0])
	}
	back, err := ToRawBytes(list)
	if err != nil {
		t.Fatalf("ToRawBytes: %v", err)
	}
	if !bytes.Equal(back[0], el) {
		t.Fatalf("round trip mismatch: got %x want %x", back[0], el)
	}
}

func TestFromRawBytesWrongWidth(t *testing.T) {
	if _, err := FromRawBytes(enums.Int32, [][]byte{{1, 2, 3}}); err == nil {
		t.Fatal("expected width error")
	}
}

func TestFromRawBytesUnsupportedDatatype(t *testing.T) {
	if _, err := FromRawBytes(enums.Boolean, [][]byte{{1}}); err == nil {
		t.Fatal("expected unsupported datatype error")
	}
}
