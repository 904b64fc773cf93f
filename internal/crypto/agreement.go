package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	"walletlink/internal/domain/types"
)

// SharedKey derives the symmetric key both peers arrive at from one side's
// private key and the other side's public key: HKDF-SHA256 over the X25519
// output with empty salt and info.
func SharedKey(priv types.PrivateKey, peer types.PublicKey) (types.SymmetricKey, error) {
	var key types.SymmetricKey
	dh, err := DH(priv, peer)
	if err != nil {
		return key, err
	}
	defer Wipe(dh[:])

	r := hkdf.New(sha256.New, dh[:], nil, nil)
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return types.SymmetricKey{}, err
	}
	return key, nil
}

// TopicFromKey names the relay topic protected by key: the hex SHA-256 of
// the key bytes.
func TopicFromKey(key types.SymmetricKey) types.Topic {
	sum := sha256.Sum256(key[:])
	return types.Topic(hex.EncodeToString(sum[:]))
}
