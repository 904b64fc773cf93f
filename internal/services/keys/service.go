package keys

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
)

const (
	privPrefix   = "priv:"
	secretPrefix = "topic:"
)

var (
	// ErrPrivateKeyNotFound is returned by Agree when the self key is unknown.
	ErrPrivateKeyNotFound = errors.New("private key not found")
)

// Service implements domain.KeyAgreement. Values are written to the keys
// bucket of kv, which should be a store.Sealed.
type Service struct {
	kv     domain.KV
	bucket string
}

// Compile-time check that Service satisfies the domain interface.
var _ domain.KeyAgreement = (*Service)(nil)

// New returns a Service storing into bucket of kv.
func New(kv domain.KV, bucket string) *Service {
	return &Service{kv: kv, bucket: bucket}
}

// CreateKeyPair generates and stores a key pair, returning its public half.
func (s *Service) CreateKeyPair(ctx context.Context) (domain.PublicKey, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.PublicKey{}, err
	}
	defer crypto.Wipe(priv[:])
	if err := s.kv.Put(ctx, s.bucket, privPrefix+pub.Hex(), priv[:]); err != nil {
		return domain.PublicKey{}, fmt.Errorf("store private key: %w", err)
	}
	return pub, nil
}

// Agree derives the symmetric key shared between self (which must be a
// stored key pair) and peer, and the topic it protects. It does not store
// the secret.
func (s *Service) Agree(ctx context.Context, self, peer domain.PublicKey) (domain.SymmetricKey, domain.Topic, error) {
	raw, ok, err := s.kv.Get(ctx, s.bucket, privPrefix+self.Hex())
	if err != nil {
		return domain.SymmetricKey{}, "", err
	}
	if !ok || len(raw) != 32 {
		return domain.SymmetricKey{}, "", fmt.Errorf("%w: %s", ErrPrivateKeyNotFound, self.Hex())
	}
	var priv domain.PrivateKey
	copy(priv[:], raw)
	defer crypto.Wipe(priv[:])
	crypto.Wipe(raw)

	key, err := crypto.SharedKey(priv, peer)
	if err != nil {
		return domain.SymmetricKey{}, "", fmt.Errorf("x25519: %w", err)
	}
	return key, crypto.TopicFromKey(key), nil
}

// GenerateSymmetricKey creates a random topic key and stores it under its
// topic.
func (s *Service) GenerateSymmetricKey(ctx context.Context) (domain.SymmetricKey, domain.Topic, error) {
	var key domain.SymmetricKey
	if _, err := rand.Read(key[:]); err != nil {
		return key, "", err
	}
	topic := crypto.TopicFromKey(key)
	if err := s.SetSecret(ctx, topic, key); err != nil {
		return domain.SymmetricKey{}, "", err
	}
	return key, topic, nil
}

// SetSecret stores key as the secret of topic.
func (s *Service) SetSecret(ctx context.Context, topic domain.Topic, key domain.SymmetricKey) error {
	if err := s.kv.Put(ctx, s.bucket, secretPrefix+string(topic), key[:]); err != nil {
		return fmt.Errorf("store secret for %s: %w", topic, err)
	}
	return nil
}

// Secret returns the secret of topic.
func (s *Service) Secret(ctx context.Context, topic domain.Topic) (domain.SymmetricKey, bool, error) {
	var key domain.SymmetricKey
	raw, ok, err := s.kv.Get(ctx, s.bucket, secretPrefix+string(topic))
	if err != nil || !ok {
		return key, false, err
	}
	if len(raw) != len(key) {
		return key, false, fmt.Errorf("secret for %s has %d bytes", topic, len(raw))
	}
	copy(key[:], raw)
	crypto.Wipe(raw)
	return key, true, nil
}

// DeleteSecret forgets the secret of topic.
func (s *Service) DeleteSecret(ctx context.Context, topic domain.Topic) error {
	return s.kv.Delete(ctx, s.bucket, secretPrefix+string(topic))
}

// DeletePrivateKey forgets the private half of pub.
func (s *Service) DeletePrivateKey(ctx context.Context, pub domain.PublicKey) error {
	return s.kv.Delete(ctx, s.bucket, privPrefix+pub.Hex())
}
