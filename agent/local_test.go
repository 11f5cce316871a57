package agent

import (
	"bytes"
	"testing"

	"github.com/golang/snappy"

	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/enums"
)

func dictionaryPagePlaintext() []byte {
	var raw []byte
	raw = bytesutil.AppendUint32LE(raw, uint32(len("apple")))
	raw = append(raw, []byte("apple")...)
	raw = bytesutil.AppendUint32LE(raw, uint32(len("banana")))
	raw = append(raw, []byte("banana")...)
	return snappy.Encode(nil, raw)
}

func dictionaryInitParams() InitParams {
	return InitParams{
		ColumnName:         "col",
		ApplicationContext: `{"user_id":"user-1"}`,
		KeyID:              "key-1",
		Datatype:           enums.ByteArray,
		Compression:        enums.Snappy,
		EncodingAttributes: map[string]string{
			"page_type":    "DICTIONARY_PAGE",
			"page_encoding": "PLAIN",
		},
	}
}

func TestLocalEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewLocal(dictionaryInitParams())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	plaintext := dictionaryPagePlaintext()

	encResult := enc.Encrypt(plaintext)
	if !encResult.Success {
		t.Fatalf("Encrypt failed: %s %v", encResult.ErrorMessage, encResult.ErrorFields)
	}

	dec, err := NewLocal(dictionaryInitParams())
	if err != nil {
		t.Fatalf("NewLocal (decrypt): %v", err)
	}
	decResult := dec.Decrypt(encResult.Payload, encResult.EncryptionMetadata)
	if !decResult.Success {
		t.Fatalf("Decrypt failed: %s %v", decResult.ErrorMessage, decResult.ErrorFields)
	}
	if !bytes.Equal(decResult.Payload, plaintext) {
		t.Fatalf("round trip mismatch")
	}
}

func TestLocalRejectsEmptyKeyID(t *testing.T) {
	params := dictionaryInitParams()
	params.KeyID = ""
	if _, err := NewLocal(params); err == nil {
		t.Fatal("expected New validation failure for empty key_id")
	}
}

func TestLocalUpdateEncryptionMetadataIsCopied(t *testing.T) {
	enc, err := NewLocal(dictionaryInitParams())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	seed := map[string]string{"dbps_agent_version": "v0.01", "encryption_mode": "per_block"}
	enc.UpdateEncryptionMetadata(seed)
	seed["encryption_mode"] = "mutated"
	if enc.encryptionMetadata["encryption_mode"] != "per_block" {
		t.Fatal("UpdateEncryptionMetadata should copy, not alias, the input map")
	}
}

func TestParseAppContextEdgeCases(t *testing.T) {
	ctx, err := parseAppContext("")
	if err != nil || ctx.UserID != "" {
		t.Fatalf("empty context: %+v, %v", ctx, err)
	}
	if _, err := parseAppContext("not-json"); err == nil {
		t.Fatal("expected InvalidInput for malformed application_context")
	}
	ctx, err = parseAppContext(`{"user_id":"abc"}`)
	if err != nil || ctx.UserID != "abc" {
		t.Fatalf("parsed context: %+v, %v", ctx, err)
	}
}
