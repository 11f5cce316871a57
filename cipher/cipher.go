// Package cipher defines the provider-agnostic encryptor contract the
// sequencer drives, plus a reference "basic" implementation. No
// cryptographic primitive choice is mandated by the protocol; production
// deployments substitute their own Encryptor.
package cipher

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/protegrity/dbps/bytesutil"
	"github.com/protegrity/dbps/dbpserr"
	"github.com/protegrity/dbps/enums"
	"github.com/protegrity/dbps/typedvalue"
)

// Encryptor is the sequencer's only dependency on a cryptographic
// primitive. Implementations are bound to a fixed (key_id, column_name,
// user_id, application_context, datatype) context at construction time.
type Encryptor interface {
	EncryptBlock(data []byte) ([]byte, error)
	DecryptBlock(data []byte) ([]byte, error)
	EncryptValueList(list typedvalue.List) ([]byte, error)
	DecryptValueList(data []byte) (typedvalue.List, error)
}

// Binding identifies the context an Encryptor is bound to.
type Binding struct {
	KeyID              string
	ColumnName         string
	UserID             string
	ApplicationContext string
	Datatype           enums.Datatype
}

// BasicEncryptor is a reference implementation: an XOR keystream derived
// via HKDF-SHA256 from the binding context. It round-trips correctly but
// provides no real confidentiality; it exists so the sequencer has a
// default to drive in tests and local runs.
type BasicEncryptor struct {
	binding   Binding
	keystream func(n int) ([]byte, error)
}

// NewBasicEncryptor derives a deterministic keystream generator bound to
// binding. The same binding always yields the same keystream bytes, which
// is required for decrypt to invert encrypt.
func NewBasicEncryptor(binding Binding) (*BasicEncryptor, error) {
	if binding.KeyID == "" {
		return nil, dbpserr.NewValidation("cipher: key_id must be non-empty")
	}
	info := fmt.Sprintf("dbps|%s|%s|%s|%s", binding.ColumnName, binding.UserID, binding.ApplicationContext, binding.Datatype)
	salt := []byte("dbps-basic-encryptor-v1")

	return &BasicEncryptor{
		binding: binding,
		keystream: func(n int) ([]byte, error) {
			reader := hkdf.New(sha256.New, []byte(binding.KeyID), salt, []byte(info))
			out := make([]byte, n)
			if _, err := io.ReadFull(reader, out); err != nil {
				return nil, dbpserr.NewTransport(err, "cipher: keystream derivation failed")
			}
			return out, nil
		},
	}, nil
}

func xorWithKeystream(data []byte, keystream func(int) ([]byte, error)) ([]byte, error) {
	ks, err := keystream(len(data))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ ks[i]
	}
	return out, nil
}

// EncryptBlock XORs data with the derived keystream. The transform is its
// own inverse, so DecryptBlock is identical.
func (e *BasicEncryptor) EncryptBlock(data []byte) ([]byte, error) {
	return xorWithKeystream(data, e.keystream)
}

// DecryptBlock inverts EncryptBlock.
func (e *BasicEncryptor) DecryptBlock(data []byte) ([]byte, error) {
	return xorWithKeystream(data, e.keystream)
}

// EncryptValueList serialises list into a self-describing byte stream
// (datatype tag, element count, then length-prefixed XOR'd elements) so
// DecryptValueList can reconstruct it without external metadata.
func (e *BasicEncryptor) EncryptValueList(list typedvalue.List) ([]byte, error) {
	elements, err := typedvalue.ToRawBytes(list)
	if err != nil {
		return nil, err
	}
	out := bytesutil.AppendInt32LE(nil, int32(list.Datatype))
	out = bytesutil.AppendUint32LE(out, uint32(len(elements)))
	for _, el := range elements {
		enc, err := xorWithKeystream(el, e.keystream)
		if err != nil {
			return nil, err
		}
		out = bytesutil.AppendUint32LE(out, uint32(len(enc)))
		out = append(out, enc...)
	}
	return out, nil
}

// DecryptValueList inverts EncryptValueList.
func (e *BasicEncryptor) DecryptValueList(data []byte) (typedvalue.List, error) {
	if len(data) < 8 {
		return typedvalue.List{}, dbpserr.NewInvalidInput("cipher: encrypted value list truncated")
	}
	datatype := enums.Datatype(bytesutil.ReadInt32LE(data, 0))
	count := int(bytesutil.ReadUint32LE(data, 4))
	offset := 8

	elements := make([][]byte, count)
	for i := 0; i < count; i++ {
		if offset+4 > len(data) {
			return typedvalue.List{}, dbpserr.NewInvalidInput("cipher: encrypted value list truncated at element %d", i)
		}
		n := int(bytesutil.ReadUint32LE(data, offset))
		offset += 4
		if n < 0 || offset+n > len(data) {
			return typedvalue.List{}, dbpserr.NewInvalidInput("cipher: encrypted value list element %d length %d invalid", i, n)
		}
		dec, err := xorWithKeystream(data[offset:offset+n], e.keystream)
		if err != nil {
			return typedvalue.List{}, err
		}
		elements[i] = dec
		offset += n
	}
	if offset != len(data) {
		return typedvalue.List{}, dbpserr.NewInvalidInput("cipher: encrypted value list has trailing garbage")
	}
	return typedvalue.FromRawBytes(datatype, elements)
}
