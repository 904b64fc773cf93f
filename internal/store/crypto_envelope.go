package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
)

const (
	// The current supported version of the sealed value format.
	sealedFormatVersion byte = 1

	metaSalt  = "kek_salt"
	metaCheck = "kek_check"
)

var (
	// ErrWrongPassphrase is returned when the passphrase does not open the
	// store, or a sealed value has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted value")

	checkPlaintext = []byte("walletlink keystore")
)

// Sealed wraps a KV and encrypts every value with a key derived from a
// passphrase. The Argon2id salt and a check value live in the _meta bucket
// of the underlying KV.
//
// Value layout: version byte, 24-byte XChaCha20 nonce, ciphertext. The
// bucket and key are bound as associated data so values cannot be swapped.
type Sealed struct {
	kv   domain.KV
	aead cipher.AEAD
}

// NewSealed derives the key for passphrase, creating salt and check value
// on first use.
func NewSealed(ctx context.Context, kv domain.KV, passphrase string) (*Sealed, error) {
	salt, ok, err := kv.Get(ctx, bucketMeta, metaSalt)
	if err != nil {
		return nil, err
	}
	if !ok {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		if err := kv.Put(ctx, bucketMeta, metaSalt, salt); err != nil {
			return nil, err
		}
	}

	kek, err := crypto.DeriveKEK(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(kek)
	aead, err := chacha20poly1305.NewX(kek)
	if err != nil {
		return nil, err
	}
	s := &Sealed{kv: kv, aead: aead}

	check, ok, err := kv.Get(ctx, bucketMeta, metaCheck)
	if err != nil {
		return nil, err
	}
	if ok {
		if _, err := s.open(bucketMeta, metaCheck, check); err != nil {
			return nil, err
		}
		return s, nil
	}
	sealed, err := s.seal(bucketMeta, metaCheck, checkPlaintext)
	if err != nil {
		return nil, err
	}
	return s, kv.Put(ctx, bucketMeta, metaCheck, sealed)
}

func aad(bucket, key string) []byte { return []byte(bucket + "/" + key) }

func (s *Sealed) seal(bucket, key string, raw []byte) ([]byte, error) {
	out := make([]byte, 1+s.aead.NonceSize(), 1+s.aead.NonceSize()+len(raw)+s.aead.Overhead())
	out[0] = sealedFormatVersion
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out[1:], raw, aad(bucket, key)), nil
}

func (s *Sealed) open(bucket, key string, b []byte) ([]byte, error) {
	if len(b) < 1+s.aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	if b[0] > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported sealed value version %d", b[0])
	}
	n := s.aead.NonceSize()
	pt, err := s.aead.Open(nil, b[1:1+n], b[1+n:], aad(bucket, key))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func (s *Sealed) Get(ctx context.Context, bucket, key string) ([]byte, bool, error) {
	b, ok, err := s.kv.Get(ctx, bucket, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	pt, err := s.open(bucket, key, b)
	if err != nil {
		return nil, false, fmt.Errorf("open %s/%s: %w", bucket, key, err)
	}
	return pt, true, nil
}

func (s *Sealed) Put(ctx context.Context, bucket, key string, value []byte) error {
	b, err := s.seal(bucket, key, value)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, bucket, key, b)
}

func (s *Sealed) Delete(ctx context.Context, bucket, key string) error {
	return s.kv.Delete(ctx, bucket, key)
}

func (s *Sealed) Keys(ctx context.Context, bucket string) ([]string, error) {
	return s.kv.Keys(ctx, bucket)
}

// Close is a no-op; the wrapped KV is owned by the caller.
func (s *Sealed) Close() error { return nil }
