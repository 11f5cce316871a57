package cipher

import (
	"bytes"
	"testing"

	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/typedvalue"
)

func testBinding() Binding {
	return Binding{
		KeyID:              "key-1",
		ColumnName:         "col",
		UserID:             "user-1",
		ApplicationContext: "ctx",
		Datatype:           enums.Int32,
	}
}

func TestEncryptDecryptBlockRoundTrip(t *testing.T) {
	enc, err := NewBasicEncryptor(testBinding())
	if err != nil {
		t.Fatalf("NewBasicEncryptor: %v", err)
	}
	plaintext := []byte("some level bytes to protect")

	ciphertext, err := enc.EncryptBlock(plaintext)
	if err != nil {
		t.Fatalf("EncryptBlock: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext should differ from plaintext")
	}

	decrypted, err := enc.DecryptBlock(ciphertext)
	if err != nil {
		t.Fatalf("DecryptBlock: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch")
	}
}

func TestEncryptDecryptValueListRoundTrip(t *testing.T) {
	enc, err := NewBasicEncryptor(testBinding())
	if err != nil {
		t.Fatalf("NewBasicEncryptor: %v", err)
	}
	list := typedvalue.List{Datatype: enums.Int32, Int32s: []int32{1, -2, 3, 42}}

	ciphertext, err := enc.EncryptValueList(list)
	if err != nil {
		t.Fatalf("EncryptValueList: %v", err)
	}
	decoded, err := enc.DecryptValueList(ciphertext)
	if err != nil {
		t.Fatalf("DecryptValueList: %v", err)
	}
	if decoded.Datatype != list.Datatype || len(decoded.Int32s) != len(list.Int32s) {
		t.Fatalf("unexpected decoded list: %+v", decoded)
	}
	for i := range list.Int32s {
		if decoded.Int32s[i] != list.Int32s[i] {
			t.Fatalf("element %d: got %d want %d", i, decoded.Int32s[i], list.Int32s[i])
		}
	}
}

func TestDifferentBindingsProduceDifferentKeystreams(t *testing.T) {
	a, _ := NewBasicEncryptor(testBinding())
	other := testBinding()
	other.UserID = "user-2"
	b, _ := NewBasicEncryptor(other)

	plaintext := []byte("identical input")
	ca, _ := a.EncryptBlock(plaintext)
	cb, _ := b.EncryptBlock(plaintext)
	if bytes.Equal(ca, cb) {
		t.Fatal("expected different ciphertexts for different bindings")
	}
}

func TestNewBasicEncryptorRejectsEmptyKeyID(t *testing.T) {
	b := testBinding()
	b.KeyID = ""
	if _, err := NewBasicEncryptor(b); err == nil {
		t.Fatal("expected error for empty key_id")
	}
}
