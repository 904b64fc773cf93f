package interfaces

import (
	"context"

	"walletlink/internal/domain/types"
)

// KV is a bucketed byte store. Missing keys are reported with ok=false.
type KV interface {
	Get(ctx context.Context, bucket, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, bucket, key string, value []byte) error
	Delete(ctx context.Context, bucket, key string) error
	Keys(ctx context.Context, bucket string) ([]string, error)
	Close() error
}

// Store is a typed bucket.
type Store[V any] interface {
	Set(ctx context.Context, key string, v V) error
	Get(ctx context.Context, key string) (V, bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

type (
	// ProposalStore holds pending proposals by proposer public key (hex).
	ProposalStore = Store[types.Proposal]
	// ProposalLinkStore maps a session topic to the proposal that produced it.
	ProposalLinkStore = Store[types.Proposal]
	// VerifyContextStore holds verification results by request or proposal id.
	VerifyContextStore = Store[types.VerifyContext]
	// SessionStore is the session registry by topic.
	SessionStore = Store[types.Session]
	// PairingStore is the pairing registry by topic.
	PairingStore = Store[types.Pairing]
)
