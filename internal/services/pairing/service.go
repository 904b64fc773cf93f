package pairing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
	"walletlink/internal/domain/types"
)

const (
	inactiveTTL = 5 * time.Minute
	activeTTL   = 30 * 24 * time.Hour
)

var (
	// ErrNotFound is returned for operations on unknown pairing topics.
	ErrNotFound = errors.New("pairing not found")
	// ErrExpired is returned by Pair for a URI past its expiry.
	ErrExpired = errors.New("pairing uri expired")
)

// Service owns the pairing registry and the subscriptions and secrets of
// pairing topics.
type Service struct {
	keys      domain.KeyAgreement
	transport domain.Transport
	store     domain.PairingStore
	log       zerolog.Logger
	now       func() time.Time

	// mu serialises read-modify-write of pairing records.
	mu sync.Mutex
}

// Compile-time check that Service satisfies the engine's view.
var _ domain.Pairings = (*Service)(nil)

// New returns a pairing service.
func New(keys domain.KeyAgreement, transport domain.Transport, store domain.PairingStore, log zerolog.Logger) *Service {
	return &Service{
		keys:      keys,
		transport: transport,
		store:     store,
		log:       log.With().Str("component", "pairing").Logger(),
		now:       time.Now,
	}
}

// Create starts a pairing as the proposing side and returns it with the
// URI to hand to the wallet.
func (s *Service) Create(ctx context.Context, methods []string) (domain.Pairing, error) {
	key, topic, err := s.keys.GenerateSymmetricKey(ctx)
	if err != nil {
		return domain.Pairing{}, err
	}
	p := domain.Pairing{
		Topic:   topic,
		Expiry:  s.now().Add(inactiveTTL),
		Relay:   domain.RelayProtocolOptions{Protocol: types.DefaultRelayProtocol},
		Methods: methods,
	}
	p.URI = URI{Topic: topic, SymKey: key, RelayProtocol: p.Relay.Protocol, Expiry: p.Expiry, Methods: methods}.String()
	crypto.Wipe(key[:])

	if err := s.open(ctx, p); err != nil {
		return domain.Pairing{}, err
	}
	s.log.Info().Str("topic", string(topic)).Msg("pairing created")
	return p, nil
}

// Pair joins the pairing described by uri.
func (s *Service) Pair(ctx context.Context, uri string) (domain.Pairing, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return domain.Pairing{}, err
	}
	if !u.Expiry.IsZero() && !s.now().Before(u.Expiry) {
		return domain.Pairing{}, ErrExpired
	}
	if crypto.TopicFromKey(u.SymKey) != u.Topic {
		return domain.Pairing{}, fmt.Errorf("%w: topic does not match key", ErrInvalidURI)
	}
	if existing, ok, err := s.store.Get(ctx, string(u.Topic)); err != nil {
		return domain.Pairing{}, err
	} else if ok {
		return existing, nil
	}

	expiry := u.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(inactiveTTL)
	}
	p := domain.Pairing{
		Topic:   u.Topic,
		Expiry:  expiry,
		Relay:   domain.RelayProtocolOptions{Protocol: u.RelayProtocol},
		Methods: u.Methods,
		URI:     uri,
	}
	if err := s.keys.SetSecret(ctx, u.Topic, u.SymKey); err != nil {
		return domain.Pairing{}, err
	}
	if err := s.open(ctx, p); err != nil {
		return domain.Pairing{}, err
	}
	s.log.Info().Str("topic", string(u.Topic)).Msg("paired")
	return p, nil
}

func (s *Service) open(ctx context.Context, p domain.Pairing) error {
	if err := s.store.Set(ctx, string(p.Topic), p); err != nil {
		return fmt.Errorf("store pairing: %w", err)
	}
	if err := s.transport.Subscribe(ctx, p.Topic); err != nil {
		return fmt.Errorf("subscribe pairing: %w", err)
	}
	return nil
}

// Get returns the pairing on topic.
func (s *Service) Get(ctx context.Context, topic domain.Topic) (domain.Pairing, bool, error) {
	return s.store.Get(ctx, string(topic))
}

// List returns every known pairing.
func (s *Service) List(ctx context.Context) ([]domain.Pairing, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Pairing, 0, len(keys))
	for _, k := range keys {
		p, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Activate marks the pairing as used by a settled session and extends it.
func (s *Service) Activate(ctx context.Context, topic domain.Topic, peer *domain.Metadata) error {
	return s.update(ctx, topic, func(p *domain.Pairing) {
		p.Active = true
		p.Expiry = s.now().Add(activeTTL)
		if peer != nil {
			p.PeerMetadata = peer
		}
	})
}

// MarkReceived records that a request arrived on the pairing.
func (s *Service) MarkReceived(ctx context.Context, topic domain.Topic) error {
	return s.update(ctx, topic, func(p *domain.Pairing) { p.ReceivedRequest = true })
}

func (s *Service) update(ctx context.Context, topic domain.Topic, fn func(*domain.Pairing)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok, err := s.store.Get(ctx, string(topic))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, topic)
	}
	fn(&p)
	return s.store.Set(ctx, string(topic), p)
}

// Delete unsubscribes the topic, forgets its secret and removes the record.
func (s *Service) Delete(ctx context.Context, topic domain.Topic) error {
	if err := s.transport.Unsubscribe(ctx, topic); err != nil {
		return fmt.Errorf("unsubscribe pairing: %w", err)
	}
	if err := s.keys.DeleteSecret(ctx, topic); err != nil {
		return fmt.Errorf("delete pairing secret: %w", err)
	}
	s.mu.Lock()
	err := s.store.Delete(ctx, string(topic))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.log.Info().Str("topic", string(topic)).Msg("pairing deleted")
	return nil
}
