package store

import (
	"context"
	"errors"
	"fmt"

	"walletlink/internal/domain"
)

// Bucket names.
const (
	BucketProposals     = "proposals"
	BucketProposalLinks = "proposal_links"
	BucketVerify        = "verify"
	BucketHistory       = "rpc_history"
	BucketPairings      = "pairings"
	BucketSessions      = "sessions"
	BucketKeys          = "keys"
	BucketNode          = "node"
	bucketMeta          = "_meta"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Options selects and configures a KV backend.
type Options struct {
	Backend       string
	Path          string // file directory or sqlite database path
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open returns the KV backend described by opts.
func Open(ctx context.Context, opts Options) (domain.KV, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendFile:
		return NewFile(opts.Path)
	case BackendSQLite:
		return NewSQLite(ctx, opts.Path)
	case BackendRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
