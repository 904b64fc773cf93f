package crypto

import (
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Argon2id cost for DeriveKEK.
const (
	kekTime    = 1
	kekMemory  = 64 * 1024
	kekThreads = 4
)

// DeriveKEK stretches passphrase into a key-encryption key with Argon2id.
func DeriveKEK(passphrase string, salt []byte) ([]byte, error) {
	return argon2.IDKey([]byte(passphrase), salt, kekTime, kekMemory, kekThreads, chacha20poly1305.KeySize), nil
}
