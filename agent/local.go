package agent

import (
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/sequencer"
)

// Local constructs a sequencer directly in-process.
type Local struct {
	params             InitParams
	userID             string
	encryptionMetadata map[string]string
}

// NewLocal builds a Local agent, extracting user_id from the supplied
// application_context JSON. It fails validation when key_id is empty.
func NewLocal(p InitParams) (*Local, error) {
	if p.KeyID == "" {
		return nil, dbpserr.NewValidation("agent: key_id must be non-empty")
	}
	ctx, err := parseAppContext(p.ApplicationContext)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]string, len(p.ColumnEncryptionMetadata))
	for k, v := range p.ColumnEncryptionMetadata {
		metadata[k] = v
	}
	return &Local{params: p, userID: ctx.UserID, encryptionMetadata: metadata}, nil
}

// UpdateEncryptionMetadata lets a decrypt caller supply the metadata
// produced by a prior encrypt call, per the supplemented §9 capability.
func (l *Local) UpdateEncryptionMetadata(metadata map[string]string) {
	l.encryptionMetadata = make(map[string]string, len(metadata))
	for k, v := range metadata {
		l.encryptionMetadata[k] = v
	}
}

func (l *Local) newSequencer(encodingAttributes map[string]string) (*sequencer.Sequencer, error) {
	return sequencer.New(sequencer.Params{
		ColumnName:           l.params.ColumnName,
		Datatype:             l.params.Datatype,
		DatatypeLength:       l.params.DatatypeLength,
		Compression:          l.params.Compression,
		EncodingAttributes:   encodingAttributes,
		EncryptedCompression: l.params.Compression,
		KeyID:                l.params.KeyID,
		UserID:               l.userID,
		ApplicationContext:   l.params.ApplicationContext,
		EncryptionMetadata:   l.encryptionMetadata,
	}, nil)
}

// Encrypt drives convert_and_encrypt over plaintext.
func (l *Local) Encrypt(plaintext []byte) Result {
	seq, err := l.newSequencer(l.params.EncodingAttributes)
	if err != nil {
		return failure(sequencer.StageParameterValidation, err)
	}
	if err := seq.ConvertAndEncrypt(plaintext); err != nil {
		return failure(seq.ErrorStage, err)
	}
	l.encryptionMetadata = seq.EncryptionMetadata
	return success(seq.EncryptedResult, seq.EncryptionMetadata)
}

// Decrypt drives convert_and_decrypt over ciphertext, using
// encryptionMetadata if supplied, else the agent's own cached metadata
// from a prior Encrypt/UpdateEncryptionMetadata call.
func (l *Local) Decrypt(ciphertext []byte, encryptionMetadata map[string]string) Result {
	if encryptionMetadata != nil {
		l.UpdateEncryptionMetadata(encryptionMetadata)
	}
	seq, err := l.newSequencer(l.params.EncodingAttributes)
	if err != nil {
		return failure(sequencer.StageParameterValidation, err)
	}
	if err := seq.ConvertAndDecrypt(ciphertext); err != nil {
		return failure(seq.ErrorStage, err)
	}
	return success(seq.DecryptedResult, nil)
}
