package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"

	"github.com/protegrity/dbps/auth"
	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/internal/dbpslog"
	"github.com/protegrity/dbps/schema"
)

func testServer() *Server {
	store := auth.NewStore(map[string]string{"client-1": "secret-key"}, []byte("signing-secret"), false)
	return New(store, false, dbpslog.Default(), nil)
}

func dictionaryPagePlaintext() []byte {
	var raw []byte
	raw = bytesutil.AppendUint32LE(raw, uint32(len("apple")))
	raw = append(raw, []byte("apple")...)
	raw = bytesutil.AppendUint32LE(raw, uint32(len("banana")))
	raw = append(raw, []byte("banana")...)
	return snappy.Encode(nil, raw)
}

func TestHealthz(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("healthz = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestStatusz(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("statusz status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode statusz: %v", err)
	}
	if body["skip_credential_check"] != false {
		t.Fatalf("skip_credential_check = %v, want false", body["skip_credential_check"])
	}
}

func mintToken(t *testing.T, srv *Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"client_id": "client-1", "api_key": "secret-key"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("auth status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return out.Token
}

func TestAuthSuccessAndFailure(t *testing.T) {
	srv := testServer()
	token := mintToken(t, srv)
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	body, _ := json.Marshal(map[string]string{"client_id": "client-1", "api_key": "wrong"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("auth with wrong api_key status = %d, want 401", rec.Code)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	srv := testServer()
	token := mintToken(t, srv)
	plaintext := dictionaryPagePlaintext()

	encReq := schema.EncryptRequest{
		ColumnReference: schema.ColumnReference{Name: "col"},
		DataBatch: schema.DataBatch{
			DatatypeInfo: schema.DatatypeInfo{Datatype: "BYTE_ARRAY"},
			Value:        plaintext,
			ValueFormat: schema.ValueFormat{
				Compression: "SNAPPY",
				Format:      "PLAIN",
				EncodingAttributes: map[string]string{
					"page_type":    "DICTIONARY_PAGE",
					"page_encoding": "PLAIN",
				},
			},
		},
		DataBatchEncrypted: schema.DataBatchEncrypted{ValueFormat: schema.EncryptedValueFormat{Compression: "SNAPPY"}},
		Encryption:         schema.Encryption{KeyID: "key-1"},
		Access:             schema.Access{UserID: "user-1"},
	}
	encBody, _ := json.Marshal(encReq)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/encrypt", bytes.NewReader(encBody))
	req.Header.Set("Authorization", "Bearer "+token)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("encrypt status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var encResp schema.EncryptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &encResp); err != nil {
		t.Fatalf("decode encrypt response: %v", err)
	}
	if encResp.EncryptionMetadata["encryption_mode"] != "per_value" {
		t.Fatalf("encryption_mode = %q, want per_value", encResp.EncryptionMetadata["encryption_mode"])
	}

	decReq := schema.DecryptRequest{
		ColumnReference: schema.ColumnReference{Name: "col"},
		DataBatch: schema.DataBatch{
			DatatypeInfo: schema.DatatypeInfo{Datatype: "BYTE_ARRAY"},
			ValueFormat: schema.ValueFormat{
				Compression: "SNAPPY",
				Format:      "PLAIN",
				EncodingAttributes: map[string]string{
					"page_type":    "DICTIONARY_PAGE",
					"page_encoding": "PLAIN",
				},
			},
		},
		DataBatchEncrypted: schema.DataBatchEncrypted{
			Value:       encResp.DataBatchEncrypted.Value,
			ValueFormat: schema.EncryptedValueFormat{Compression: "SNAPPY"},
		},
		Encryption:         schema.Encryption{KeyID: "key-1"},
		Access:             schema.Access{UserID: "user-1"},
		EncryptionMetadata: encResp.EncryptionMetadata,
	}
	decBody, _ := json.Marshal(decReq)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/decrypt", bytes.NewReader(decBody))
	req.Header.Set("Authorization", "Bearer "+token)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("decrypt status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var decResp schema.DecryptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &decResp); err != nil {
		t.Fatalf("decode decrypt response: %v", err)
	}
	if !bytes.Equal(decResp.DataBatch.Value, plaintext) {
		t.Fatalf("round trip mismatch")
	}
}

func TestEncryptRejectsMissingAuth(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/encrypt", bytes.NewReader([]byte("{}")))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestEncryptRejectsInvalidPayload(t *testing.T) {
	srv := testServer()
	token := mintToken(t, srv)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/encrypt", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer "+token)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
