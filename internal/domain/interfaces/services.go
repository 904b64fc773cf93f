package interfaces

import (
	"context"

	"walletlink/internal/domain/types"
)

// KeyAgreement owns key pairs and per-topic symmetric secrets.
type KeyAgreement interface {
	CreateKeyPair(ctx context.Context) (types.PublicKey, error)
	Agree(ctx context.Context, self, peer types.PublicKey) (types.SymmetricKey, types.Topic, error)
	GenerateSymmetricKey(ctx context.Context) (types.SymmetricKey, types.Topic, error)
	SetSecret(ctx context.Context, topic types.Topic, key types.SymmetricKey) error
	Secret(ctx context.Context, topic types.Topic) (types.SymmetricKey, bool, error)
	DeleteSecret(ctx context.Context, topic types.Topic) error
	DeletePrivateKey(ctx context.Context, pub types.PublicKey) error
}

// Verifier asks the verification service about message origins.
type Verifier interface {
	Assess(ctx context.Context, fingerprint string) (types.Attestation, error)
	BuildContext(id string, a types.Attestation, domain string) types.VerifyContext
}

// Pairings is the pairing registry as seen by the negotiation engine.
type Pairings interface {
	Get(ctx context.Context, topic types.Topic) (types.Pairing, bool, error)
	Activate(ctx context.Context, topic types.Topic, peer *types.Metadata) error
	MarkReceived(ctx context.Context, topic types.Topic) error
	Delete(ctx context.Context, topic types.Topic) error
}
