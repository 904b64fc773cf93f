package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"walletlink/internal/domain/types"
)

// EnvelopeType0 is the envelope for peers that already share a topic key.
const EnvelopeType0 byte = 0

var (
	// ErrEnvelope is returned for envelopes that cannot be opened.
	ErrEnvelope = errors.New("invalid envelope")
)

// Seal encrypts plaintext under key and returns the base64 type 0 envelope:
// type byte, 12-byte nonce, ciphertext with tag.
func Seal(key types.SymmetricKey, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return "", err
	}
	buf := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	buf[0] = EnvelopeType0
	if _, err := rand.Read(buf[1:]); err != nil {
		return "", err
	}
	buf = aead.Seal(buf, buf[1:1+aead.NonceSize()], plaintext, nil)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Open reverses Seal.
func Open(key types.SymmetricKey, envelope string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	if len(raw) < 1+aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrEnvelope)
	}
	if raw[0] != EnvelopeType0 {
		return nil, fmt.Errorf("%w: unsupported type %d", ErrEnvelope, raw[0])
	}
	nonce := raw[1 : 1+aead.NonceSize()]
	pt, err := aead.Open(nil, nonce, raw[1+aead.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return pt, nil
}
