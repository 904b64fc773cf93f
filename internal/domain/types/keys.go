package types

import (
	"encoding/hex"
	"fmt"
)

// PublicKey is a Curve25519 public key.
type PublicKey [32]byte

// Slice returns the key as a []byte.
func (p PublicKey) Slice() []byte { return p[:] }

// Hex returns the lowercase hex encoding used on the wire and as a store key.
func (p PublicKey) Hex() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether the key is unset.
func (p PublicKey) IsZero() bool { return p == PublicKey{} }

// PrivateKey is a Curve25519 private key.
type PrivateKey [32]byte

// Slice returns the key as a []byte.
func (k PrivateKey) Slice() []byte { return k[:] }

// SymmetricKey is the 32-byte secret that encrypts all traffic on one topic.
type SymmetricKey [32]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// Hex returns the lowercase hex encoding of the key.
func (k SymmetricKey) Hex() string { return hex.EncodeToString(k[:]) }

// ParsePublicKey decodes a hex encoded 32-byte public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var out PublicKey
	if err := decodeHex32(s, out[:]); err != nil {
		return out, fmt.Errorf("public key: %w", err)
	}
	return out, nil
}

// ParseSymmetricKey decodes a hex encoded 32-byte symmetric key.
func ParseSymmetricKey(s string) (SymmetricKey, error) {
	var out SymmetricKey
	if err := decodeHex32(s, out[:]); err != nil {
		return out, fmt.Errorf("symmetric key: %w", err)
	}
	return out, nil
}

func decodeHex32(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	copy(dst, b)
	return nil
}
