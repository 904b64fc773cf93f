package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"walletlink/internal/domain"
	"walletlink/internal/relay"
	"walletlink/internal/services/keys"
	"walletlink/internal/services/pairing"
	"walletlink/internal/services/sign"
	"walletlink/internal/services/verify"
	"walletlink/internal/store"
)

// Options supplies process-level collaborators that do not come from
// the config file.
type Options struct {
	// Hub is the shared in-memory relay used when relay.backend is memory.
	// A private hub is created when nil.
	Hub *relay.Hub
	// HTTP is used by the verification client; defaults to http.DefaultClient.
	HTTP *http.Client
}

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	KV        domain.KV
	Keys      *keys.Service
	Broker    relay.Broker
	Transport *relay.Interactor
	Pairings  *pairing.Service
	Verifier  *verify.Client
	Sessions  *store.Map[domain.Session]
	Proposals *store.Map[domain.Proposal]
	Engine    *sign.Engine
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg *Config, log zerolog.Logger, opts Options) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kv, err := store.Open(ctx, store.Options{
		Backend:       cfg.Store.Backend,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisPrefix:   cfg.Store.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Key material is sealed when a passphrase is configured.
	keyKV := kv
	if pass := cfg.passphrase(); pass != "" {
		sealed, err := store.NewSealed(ctx, kv, pass)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("open keystore: %w", err)
		}
		keyKV = sealed
	}
	ks := keys.New(keyKV, store.BucketKeys)

	clientID, err := relayClientID(ctx, cfg, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	broker, err := newBroker(ctx, cfg, clientID, log, opts)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	tr := relay.NewInteractor(broker, ks, relay.NewHistory(store.NewMap[relay.HistoryRecord](kv, store.BucketHistory)), log)

	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	verifier := verify.New(verify.Options{
		URL:       cfg.Verify.URL,
		Timeout:   cfg.Verify.Timeout,
		CacheSize: cfg.Verify.CacheSize,
		HTTP:      httpClient,
	}, log)

	pairings := pairing.New(ks, tr, store.NewMap[domain.Pairing](kv, store.BucketPairings), log)
	sessions := store.NewMap[domain.Session](kv, store.BucketSessions)
	proposals := store.NewMap[domain.Proposal](kv, store.BucketProposals)

	engine := sign.New(sign.Deps{
		Transport:      tr,
		Keys:           ks,
		Verifier:       verifier,
		Pairings:       pairings,
		Sessions:       sessions,
		Proposals:      proposals,
		ProposalLinks:  store.NewMap[domain.Proposal](kv, store.BucketProposalLinks),
		VerifyContexts: store.NewMap[domain.VerifyContext](kv, store.BucketVerify),
		Log:            log,
	}, sign.Config{
		Self:        cfg.Metadata,
		SessionTTL:  cfg.Engine.SessionTTL,
		ProposalTTL: cfg.Engine.ProposalTTL,
		Namespaces:  cfg.namespaceMode(),
	})

	return &Wire{
		KV:        kv,
		Keys:      ks,
		Broker:    broker,
		Transport: tr,
		Pairings:  pairings,
		Verifier:  verifier,
		Sessions:  sessions,
		Proposals: proposals,
		Engine:    engine,
	}, nil
}

const nodeClientID = "relay_client_id"

// relayClientID returns the configured client id, or one generated on
// first start and kept in the store so durable relay consumers resume
// across restarts.
func relayClientID(ctx context.Context, cfg *Config, kv domain.KV) (string, error) {
	if cfg.Relay.ClientID != "" {
		return cfg.Relay.ClientID, nil
	}
	raw, ok, err := kv.Get(ctx, store.BucketNode, nodeClientID)
	if err != nil {
		return "", fmt.Errorf("load relay client id: %w", err)
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	id := uuid.NewString()
	if err := kv.Put(ctx, store.BucketNode, nodeClientID, []byte(id)); err != nil {
		return "", fmt.Errorf("store relay client id: %w", err)
	}
	return id, nil
}

func newBroker(ctx context.Context, cfg *Config, clientID string, log zerolog.Logger, opts Options) (relay.Broker, error) {
	switch cfg.Relay.Backend {
	case RelayMemory:
		hub := opts.Hub
		if hub == nil {
			hub = relay.NewHub()
		}
		return hub.Client(clientID, log), nil
	default:
		b, err := relay.NewNATS(ctx, relay.NATSOptions{
			URL:             cfg.Relay.URL,
			ClientID:        clientID,
			Stream:          cfg.Relay.Stream,
			MaxAge:          cfg.Relay.MaxAge,
			ReconnectWait:   cfg.Relay.ReconnectWait,
			MaxReconnects:   cfg.Relay.MaxReconnects,
			CredentialsFile: cfg.Relay.CredentialsFile,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect relay: %w", err)
		}
		return b, nil
	}
}

// Close tears the graph down in reverse order of construction.
func (w *Wire) Close() error {
	return errors.Join(
		w.Engine.Close(),
		w.Transport.Close(),
		w.Broker.Close(),
		w.KV.Close(),
	)
}
