// Package schema defines the JSON request/response wire shapes for the
// encrypt/decrypt endpoints. Schemas are dumb data carriers: every
// semantic check lives in the sequencer; this package only validates
// required-field presence and handles base64 at the JSON boundary.
package schema

import "github.com/protegrity/dbps/dbpserr"

// ColumnReference identifies the column being processed.
type ColumnReference struct {
	Name string `json:"name"`
}

// DatatypeInfo names a Parquet datatype and its optional fixed length.
type DatatypeInfo struct {
	Datatype string `json:"datatype"`
	Length   int    `json:"length,omitempty"`
}

// ValueFormat carries compression/encoding metadata for a data batch.
type ValueFormat struct {
	Compression        string            `json:"compression"`
	Format             string            `json:"format,omitempty"`
	EncodingAttributes map[string]string `json:"encoding_attributes,omitempty"`
}

// DataBatch is the plaintext batch payload.
type DataBatch struct {
	DatatypeInfo DatatypeInfo `json:"datatype_info"`
	Value        []byte       `json:"value"`
	ValueFormat  ValueFormat  `json:"value_format"`
}

// EncryptedValueFormat is the compression format of an encrypted batch;
// datatype information is not re-stated since it is unchanged by
// encryption.
type EncryptedValueFormat struct {
	Compression string `json:"compression"`
}

// DataBatchEncrypted is the ciphertext batch payload.
type DataBatchEncrypted struct {
	ValueFormat EncryptedValueFormat `json:"value_format"`
	Value       []byte               `json:"value,omitempty"`
}

// Encryption carries the key identifier for an encrypt request.
type Encryption struct {
	KeyID string `json:"key_id"`
}

// Access carries caller identity/authorization fields.
type Access struct {
	UserID         string `json:"user_id"`
	Role           string `json:"role,omitempty"`
	AccessControl  string `json:"access_control,omitempty"`
}

// Debug carries a caller-supplied correlation identifier.
type Debug struct {
	ReferenceID string `json:"reference_id"`
}

// EncryptRequest is the wire shape for POST /encrypt.
type EncryptRequest struct {
	ColumnReference      ColumnReference     `json:"column_reference"`
	DataBatch            DataBatch           `json:"data_batch"`
	DataBatchEncrypted   DataBatchEncrypted  `json:"data_batch_encrypted"`
	Encryption           Encryption          `json:"encryption"`
	Access               Access              `json:"access"`
	ApplicationContext   string              `json:"application_context"`
	Debug                Debug               `json:"debug"`
}

// Validate checks required-field presence, per §6.2.
func (r EncryptRequest) Validate() error {
	if r.ColumnReference.Name == "" {
		return dbpserr.NewValidation("schema: column_reference.name is required")
	}
	if r.DataBatch.DatatypeInfo.Datatype == "" {
		return dbpserr.NewValidation("schema: data_batch.datatype_info.datatype is required")
	}
	if len(r.DataBatch.Value) == 0 {
		return dbpserr.NewValidation("schema: data_batch.value is required")
	}
	if r.DataBatch.ValueFormat.Compression == "" {
		return dbpserr.NewValidation("schema: data_batch.value_format.compression is required")
	}
	if r.DataBatchEncrypted.ValueFormat.Compression == "" {
		return dbpserr.NewValidation("schema: data_batch_encrypted.value_format.compression is required")
	}
	if r.Encryption.KeyID == "" {
		return dbpserr.NewValidation("schema: encryption.key_id is required")
	}
	if r.Access.UserID == "" {
		return dbpserr.NewValidation("schema: access.user_id is required")
	}
	return nil
}

// EncryptResponse is the wire shape for a successful POST /encrypt.
type EncryptResponse struct {
	DataBatchEncrypted DataBatchEncrypted `json:"data_batch_encrypted"`
	Access             Access             `json:"access"`
	Debug              Debug              `json:"debug"`
	EncryptionMetadata map[string]string  `json:"encryption_metadata,omitempty"`
}

// DecryptRequest is the wire shape for POST /decrypt. It mirrors
// EncryptRequest but carries ciphertext in data_batch_encrypted.value and
// an optional encryption_metadata produced by a prior encrypt call.
type DecryptRequest struct {
	ColumnReference    ColumnReference     `json:"column_reference"`
	DataBatch          DataBatch           `json:"data_batch"`
	DataBatchEncrypted DataBatchEncrypted  `json:"data_batch_encrypted"`
	Encryption         Encryption          `json:"encryption"`
	Access             Access              `json:"access"`
	ApplicationContext string              `json:"application_context"`
	Debug              Debug               `json:"debug"`
	EncryptionMetadata map[string]string   `json:"encryption_metadata,omitempty"`
}

// Validate checks required-field presence, per §6.2.
func (r DecryptRequest) Validate() error {
	if r.ColumnReference.Name == "" {
		return dbpserr.NewValidation("schema: column_reference.name is required")
	}
	if r.DataBatch.DatatypeInfo.Datatype == "" {
		return dbpserr.NewValidation("schema: data_batch.datatype_info.datatype is required")
	}
	if len(r.DataBatchEncrypted.Value) == 0 {
		return dbpserr.NewValidation("schema: data_batch_encrypted.value is required")
	}
	if r.DataBatch.ValueFormat.Compression == "" {
		return dbpserr.NewValidation("schema: data_batch.value_format.compression is required")
	}
	if r.DataBatchEncrypted.ValueFormat.Compression == "" {
		return dbpserr.NewValidation("schema: data_batch_encrypted.value_format.compression is required")
	}
	if r.Encryption.KeyID == "" {
		return dbpserr.NewValidation("schema: encryption.key_id is required")
	}
	if r.Access.UserID == "" {
		return dbpserr.NewValidation("schema: access.user_id is required")
	}
	return nil
}

// DecryptResponse is the wire shape for a successful POST /decrypt.
type DecryptResponse struct {
	DataBatch DataBatch `json:"data_batch"`
	Access    Access    `json:"access"`
	Debug     Debug     `json:"debug"`
}
