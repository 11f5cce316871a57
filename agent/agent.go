// Package agent implements the public library surface: Local and Remote
// facades exposing init/encrypt/decrypt over the sequencer, directly or
// via the pooled HTTP transport.
package agent

import (
	"encoding/base64"
	"encoding/json"

	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
)

// Result is the uniform outcome of an Encrypt or Decrypt call. The public
// surface never returns an error from these two calls; failures are
// reported through this struct instead.
type Result struct {
	Success            bool
	Payload            []byte
	Size               int
	EncryptionMetadata map[string]string
	ErrorMessage       string
	ErrorFields        []string
}

func failure(stage string, err error) Result {
	fields := []string{}
	if stage != "" {
		fields = append(fields, stage)
	}
	return Result{Success: false, ErrorMessage: err.Error(), ErrorFields: fields}
}

func success(payload []byte, metadata map[string]string) Result {
	return Result{Success: true, Payload: payload, Size: len(payload), EncryptionMetadata: metadata}
}

// Agent is the common surface implemented by Local and Remote. It is a
// convenience for callers that want to hold either behind one variable;
// it is not itself a polymorphism contract the sequencer depends on.
type Agent interface {
	Encrypt(plaintext []byte) Result
	Decrypt(ciphertext []byte, encryptionMetadata map[string]string) Result
	UpdateEncryptionMetadata(metadata map[string]string)
}

// AppContext is the minimal shape extracted from the application_context
// JSON blob agents are initialised with.
type AppContext struct {
	UserID string `json:"user_id"`
}

func parseAppContext(raw string) (AppContext, error) {
	if raw == "" {
		return AppContext{}, nil
	}
	var ctx AppContext
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return AppContext{}, dbpserr.NewInvalidInput("agent: malformed application_context: %v", err)
	}
	return ctx, nil
}

// InitParams are the construction parameters shared by Local and Remote,
// per §4.11.
type InitParams struct {
	ColumnName                string
	ConfigurationMap          map[string]interface{}
	ApplicationContext        string
	KeyID                     string
	Datatype                  enums.Datatype
	DatatypeLength            int
	Compression               enums.Codec
	EncodingAttributes        map[string]string
	ColumnEncryptionMetadata  map[string]string
}

// encodeBase64 / decodeBase64 are standard base64 helpers. The remote
// agent's wire calls do not use them: its schema structs carry []byte
// fields, which encoding/json base64-encodes itself. Local never touches
// base64 since it talks to the sequencer in-process with raw bytes.
func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, dbpserr.NewInvalidInput("agent: malformed base64: %v", err)
	}
	return b, nil
}
