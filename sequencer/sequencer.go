// Package sequencer implements the encryption sequencer: the stateful
// page transformer that orchestrates decompress/split/parse/encrypt/join
// and its inverse, with automatic per-value to per-block fallback.
package sequencer

import (
	"strings"

	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/cipher"
	"github.com/protegrity/dbps/compression"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/parquet"
)

const agentVersion = "v0.01"

const (
	modePerValue = "per_value"
	modePerBlock = "per_block"

	metadataAgentVersion = "dbps_agent_version"
	metadataMode         = "encryption_mode"
)

// Error stage labels, surfaced on validation/processing failure.
const (
	StageValidation                  = "validation"
	StageEncodingAttributeConversion = "encoding_attribute_conversion"
	StageParameterValidation         = "parameter_validation"
	StageEncryption                  = "encryption"
	StageDecryption                  = "decryption"
	StageDecryptVersionCheck         = "decrypt_version_check"
	StageDecryptModeValidation       = "decrypt_encryption_mode_validation"
)

// StageError carries a diagnostic stage label alongside the underlying
// error, so callers can report both error_stage and error_message.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// Params are the construction-time parameters of a Sequencer, all
// required unless noted.
type Params struct {
	ColumnName           string
	Datatype             enums.Datatype
	DatatypeLength       int // required, >0, only for FixedLenByteArray
	Compression          enums.Codec
	Format               enums.Encoding
	EncodingAttributes   map[string]string
	EncryptedCompression enums.Codec
	KeyID                string
	UserID               string
	ApplicationContext   string
	EncryptionMetadata   map[string]string // optional seed, mutated by Convert*
}

// Sequencer is bound at construction to a fixed encryption context and
// drives convert_and_encrypt / convert_and_decrypt.
type Sequencer struct {
	params    Params
	attrs     parquet.Attrs
	encryptor cipher.Encryptor

	EncryptedResult    []byte
	DecryptedResult    []byte
	EncryptionMetadata map[string]string
	ErrorStage         string
	ErrorMessage       string
}

// New validates params and constructs a Sequencer bound to its encryption
// context. encryptorFactory lets callers supply a non-default Encryptor;
// pass nil to use cipher.NewBasicEncryptor.
func New(params Params, encryptorFactory func(cipher.Binding) (cipher.Encryptor, error)) (*Sequencer, error) {
	if err := validateParams(params); err != nil {
		return nil, stageErr(StageParameterValidation, err)
	}

	attrs, err := parquet.ParseAttrs(pageTypeFromAttrs(params.EncodingAttributes), params.EncodingAttributes)
	if err != nil {
		return nil, stageErr(StageEncodingAttributeConversion, err)
	}
	if params.Format != attrs.PageEncoding {
		return nil, stageErr(StageEncodingAttributeConversion, dbpserr.NewValidation(
			"sequencer: value_format.format %s disagrees with encoding_attributes.page_encoding %s", params.Format, attrs.PageEncoding))
	}

	binding := cipher.Binding{
		KeyID:              params.KeyID,
		ColumnName:         params.ColumnName,
		UserID:             params.UserID,
		ApplicationContext: params.ApplicationContext,
		Datatype:           params.Datatype,
	}

	var enc cipher.Encryptor
	if encryptorFactory != nil {
		enc, err = encryptorFactory(binding)
	} else {
		enc, err = cipher.NewBasicEncryptor(binding)
	}
	if err != nil {
		return nil, stageErr(StageParameterValidation, err)
	}

	metadata := make(map[string]string, len(params.EncryptionMetadata)+2)
	for k, v := range params.EncryptionMetadata {
		metadata[k] = v
	}

	return &Sequencer{
		params:             params,
		attrs:              attrs,
		encryptor:          enc,
		EncryptionMetadata: metadata,
	}, nil
}

func pageTypeFromAttrs(raw map[string]string) enums.PageType {
	pt, ok := enums.ParsePageType(raw["page_type"])
	if !ok {
		return enums.UnknownPageType
	}
	return pt
}

func validateParams(p Params) error {
	if p.KeyID == "" {
		return dbpserr.NewValidation("sequencer: key_id must be non-empty")
	}
	if p.Datatype == enums.FixedLenByteArray && p.DatatypeLength <= 0 {
		return dbpserr.NewValidation("sequencer: FIXED_LEN_BYTE_ARRAY requires a positive datatype_length")
	}
	return nil
}

// claimsSupport reports whether the configured compression/format combine
// into a path the sequencer claims to support per-value, independent of
// the specific page content. Used to distinguish a genuine Unsupported
// fallback from a bug that should be rethrown.
func (s *Sequencer) claimsSupport() bool {
	switch s.params.Compression {
	case enums.Uncompressed, enums.Snappy:
	default:
		return false
	}
	if s.attrs.PageEncoding != enums.Plain {
		return false
	}
	switch s.params.Datatype {
	case enums.Int32, enums.Int64, enums.Int96, enums.Float, enums.Double, enums.ByteArray, enums.FixedLenByteArray:
	default:
		return false
	}
	switch s.attrs.PageType {
	case enums.DataPageV1, enums.DataPageV2, enums.DictionaryPage:
	default:
		return false
	}
	return true
}

// ConvertAndEncrypt runs the encrypt flow over plaintext, populating
// EncryptedResult and EncryptionMetadata, or ErrorStage/ErrorMessage on
// failure.
func (s *Sequencer) ConvertAndEncrypt(plaintext []byte) error {
	if len(plaintext) == 0 {
		return s.fail(StageValidation, dbpserr.NewValidation("sequencer: plaintext must be non-empty"))
	}

	level, value, err := parquet.DecompressAndSplit(plaintext, s.params.Compression, s.attrs)
	if err == nil {
		typed, perr := parquet.ParseValueBytesIntoTypedList(value, s.params.Datatype, s.params.DatatypeLength, s.attrs.PageEncoding)
		err = perr
		if err == nil && s.params.Datatype == enums.Boolean {
			err = dbpserr.NewUnsupported("sequencer: per-value encryption not supported for BOOLEAN")
		}
		if err == nil {
			encValues, eerr := s.encryptor.EncryptValueList(typed)
			if eerr != nil {
				return s.fail(StageEncryption, eerr)
			}
			encLevels, eerr := s.encryptor.EncryptBlock(level)
			if eerr != nil {
				return s.fail(StageEncryption, eerr)
			}
			joined, jerr := bytesutil.JoinWithLengthPrefix(encLevels, encValues)
			if jerr != nil {
				return s.fail(StageEncryption, jerr)
			}
			result, cerr := compression.Compress(joined, s.params.EncryptedCompression)
			if cerr != nil {
				return s.fail(StageEncryption, cerr)
			}
			s.EncryptedResult = result
			s.EncryptionMetadata[metadataMode] = modePerValue
			s.EncryptionMetadata[metadataAgentVersion] = agentVersion
			return nil
		}
	}

	if dbpserr.IsInvalidInput(err) {
		return s.fail(StageEncryption, err)
	}
	if !dbpserr.IsUnsupported(err) {
		return s.fail(StageEncryption, err)
	}

	// Unsupported: fall back to per-block, unless the configured path
	// claims full support, in which case this is a real bug.
	if s.claimsSupport() {
		return s.fail(StageEncryption, err)
	}

	result, berr := s.encryptor.EncryptBlock(plaintext)
	if berr != nil {
		return s.fail(StageEncryption, berr)
	}
	s.EncryptedResult = result
	s.EncryptionMetadata[metadataMode] = modePerBlock
	s.EncryptionMetadata[metadataAgentVersion] = agentVersion
	return nil
}

// ConvertAndDecrypt runs the decrypt flow over ciphertext using
// s.EncryptionMetadata (set by callers from a prior encrypt's output, e.g.
// via an agent's UpdateEncryptionMetadata).
func (s *Sequencer) ConvertAndDecrypt(ciphertext []byte) error {
	if len(ciphertext) == 0 {
		return s.fail(StageValidation, dbpserr.NewValidation("sequencer: ciphertext must be non-empty"))
	}

	version, ok := s.EncryptionMetadata[metadataAgentVersion]
	if !ok || !strings.HasPrefix(version, agentVersion) {
		return s.fail(StageDecryptVersionCheck, dbpserr.NewValidation(
			"sequencer: encryption_metadata[%s] missing or incompatible", metadataAgentVersion))
	}

	mode, ok := s.EncryptionMetadata[metadataMode]
	if !ok {
		return s.fail(StageDecryptModeValidation, dbpserr.NewValidation(
			"sequencer: encryption_metadata[%s] missing", metadataMode))
	}

	switch mode {
	case modePerValue:
		decompressed, err := compression.Decompress(ciphertext, s.params.EncryptedCompression)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		encLevels, encValues, err := bytesutil.SplitWithLengthPrefix(decompressed)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		level, err := s.encryptor.DecryptBlock(encLevels)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		typed, err := s.encryptor.DecryptValueList(encValues)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		value, err := parquet.GetTypedListAsValueBytes(typed, s.params.Datatype, s.params.DatatypeLength, s.attrs.PageEncoding)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		result, err := parquet.CompressAndJoin(level, value, s.params.Compression, s.attrs)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		s.DecryptedResult = result
		return nil

	case modePerBlock:
		result, err := s.encryptor.DecryptBlock(ciphertext)
		if err != nil {
			return s.fail(StageDecryption, err)
		}
		s.DecryptedResult = result
		return nil

	default:
		return s.fail(StageDecryptModeValidation, dbpserr.NewValidation(
			"sequencer: unrecognised encryption_mode %q", mode))
	}
}

func (s *Sequencer) fail(stage string, err error) error {
	s.ErrorStage = stage
	s.ErrorMessage = err.Error()
	return stageErr(stage, err)
}
