package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey indicates data was encrypted with a key the encryptor doesn't have.
	ErrUnknownKey = errors.New("unknown key")
	// ErrInvalidData indicates data is too short, corrupt or tampered with.
	ErrInvalidData = errors.New("invalid data")
)

// keyIndexLen is the size of the big endian key index that prefixes every
// ciphertext. The index is not secret, it is authenticated as additional data.
const keyIndexLen = 4

// Encryptor seals personal data (email addresses, display names) at rest
// with AES-GCM.
//
// Keys form an append only list. New data is always sealed with the last
// key, older keys stay around so data sealed with them can still be opened.
// Output layout: key index | nonce | ciphertext.
type Encryptor struct {
	aeads []cipher.AEAD
}

// NewEncryptor prepares an AEAD for every key. It fails when no keys are given.
func NewEncryptor(keys []Key) (*Encryptor, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	aeads := make([]cipher.AEAD, 0, len(keys))
	for i, k := range keys {
		block, err := aes.NewCipher(k.value)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}

		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}

		aeads = append(aeads, gcm)
	}

	return &Encryptor{aeads: aeads}, nil
}

// Encrypt seals data with the latest key.
func (e *Encryptor) Encrypt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	index := len(e.aeads) - 1
	gcm := e.aeads[index]

	nonce, err := genRandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	header := binary.BigEndian.AppendUint32(nil, uint32(index))

	out := make([]byte, 0, keyIndexLen+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, header), nil
}

// Decrypt opens a message produced by Encrypt, using whichever key sealed it.
func (e *Encryptor) Decrypt(message []byte) ([]byte, error) {
	if len(message) < keyIndexLen {
		return nil, ErrInvalidData
	}

	index := binary.BigEndian.Uint32(message[:keyIndexLen])
	if uint64(index) >= uint64(len(e.aeads)) {
		return nil, ErrUnknownKey
	}

	gcm := e.aeads[index]
	nonceEnd := keyIndexLen + gcm.NonceSize()
	if len(message) <= nonceEnd {
		return nil, ErrInvalidData
	}

	data, err := gcm.Open(nil, message[keyIndexLen:nonceEnd], message[nonceEnd:], message[:keyIndexLen])
	if err != nil {
		return nil, errors.Join(ErrInvalidData, err)
	}

	return data, nil
}
