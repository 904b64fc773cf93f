package sign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/rpc"
)

// Approve accepts the pending proposal from proposerKey with the given
// namespaces and settles a session for it.
//
// Steps:
//  1. Check the namespaces, then claim the stored proposal so concurrent
//     calls for the same key fail with ErrProposalNotFound. An expired
//     proposal is evicted.
//  2. Wait for one connectivity reading and fail if the relay is down.
//  3. Validate the namespaces and check them against the proposal's
//     required namespaces. A violation is returned as *namespace.Violation.
//  4. Create a key pair, agree with the proposer's key and store the
//     shared secret under the derived session topic.
//  5. Answer the proposal and send the settlement concurrently. If either
//     fails, the key material is discarded and nothing is persisted.
//  6. Persist the unacknowledged session, notify, evict the proposal and
//     its verify context, and activate the pairing.
func (e *Engine) Approve(ctx context.Context, proposerKey string, namespaces map[string]domain.Namespace, sessionProperties map[string]string) (domain.Session, error) {
	if len(namespaces) == 0 {
		return domain.Session{}, ErrEmptyNamespaces
	}
	proposal, release, err := e.claimProposal(ctx, proposerKey)
	if err != nil {
		return domain.Session{}, err
	}
	defer release()
	if err := e.waitConnected(ctx); err != nil {
		return domain.Session{}, err
	}
	if err := namespace.ValidateSession(namespaces); err != nil {
		return domain.Session{}, err
	}
	if err := namespace.Conform(namespaces, proposal.RequiredNamespaces, e.cfg.Namespaces); err != nil {
		return domain.Session{}, err
	}
	relayOpts, ok := proposal.RelayProtocol()
	if !ok {
		return domain.Session{}, ErrRelayNotFound
	}

	peer, err := domain.ParsePublicKey(proposal.ProposerPublicKey)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: proposer key: %v", ErrAgreementMissingOrInvalid, err)
	}
	self, err := e.keys.CreateKeyPair(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	key, topic, err := e.keys.Agree(ctx, self, peer)
	if err != nil {
		e.discardKeys(ctx, "", self)
		return domain.Session{}, fmt.Errorf("%w: %v", ErrAgreementMissingOrInvalid, err)
	}
	if err := e.keys.SetSecret(ctx, topic, key); err != nil {
		e.discardKeys(ctx, "", self)
		return domain.Session{}, err
	}

	settled := e.beginSettle(topic)
	defer settled()

	m := rpc.MustLookup(rpc.MethodSessionPropose)
	var session domain.Session
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result := rpc.ApproveResult{Relay: relayOpts, ResponderPublicKey: self.Hex()}
		return e.transport.RespondResult(gctx, proposal.PairingTopic, proposal.RequestID, result, m.Approve)
	})
	g.Go(func() error {
		var err error
		session, err = e.Settle(gctx, SettleInput{
			Topic:             topic,
			Proposal:          proposal,
			SelfPublicKey:     self,
			Namespaces:        namespaces,
			SessionProperties: sessionProperties,
			PairingTopic:      proposal.PairingTopic,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		e.discardKeys(ctx, topic, self)
		return domain.Session{}, err
	}

	if err := e.sessions.Set(ctx, string(topic), session); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	e.notify(SessionSettledEvent{Session: session})
	e.evictProposal(ctx, proposerKey)
	if err := e.pairings.Activate(ctx, proposal.PairingTopic, &proposal.Proposer); err != nil {
		e.log.Warn().Err(err).Str("pairing", string(proposal.PairingTopic)).Msg("activate pairing")
	}
	e.log.Info().Str("topic", string(topic)).Str("pairing", string(proposal.PairingTopic)).Msg("proposal approved")
	return session, nil
}

// SettleInput carries what Settle needs from an approval.
type SettleInput struct {
	Topic             domain.Topic
	Proposal          domain.Proposal
	SelfPublicKey     domain.PublicKey
	Namespaces        map[string]domain.Namespace
	SessionProperties map[string]string
	PairingTopic      domain.Topic
}

// Settle sends wc_sessionSettle on in.Topic and subscribes to it. The
// returned session is unacknowledged; the caller persists it.
func (e *Engine) Settle(ctx context.Context, in SettleInput) (domain.Session, error) {
	_, ok, err := e.keys.Secret(ctx, in.Topic)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: no secret for %s", ErrAgreementMissingOrInvalid, in.Topic)
	}
	relayOpts, ok := in.Proposal.RelayProtocol()
	if !ok {
		return domain.Session{}, ErrRelayNotFound
	}

	now := e.now()
	expiry := now.Add(e.cfg.SessionTTL).Truncate(time.Second)
	self := domain.Participant{PublicKey: in.SelfPublicKey.Hex(), Metadata: e.cfg.Self}
	session := domain.Session{
		Topic:              in.Topic,
		PairingTopic:       in.PairingTopic,
		Relay:              relayOpts,
		CreatedAt:          now,
		Expiry:             expiry,
		Self:               self,
		Peer:               domain.Participant{PublicKey: in.Proposal.ProposerPublicKey, Metadata: in.Proposal.Proposer},
		Controller:         self.PublicKey,
		Namespaces:         in.Namespaces,
		RequiredNamespaces: in.Proposal.RequiredNamespaces,
		OptionalNamespaces: in.Proposal.OptionalNamespaces,
		SessionProperties:  in.SessionProperties,
	}

	req, err := rpc.NewRequest(rpc.MethodSessionSettle, rpc.SettleParams{
		Relay:             relayOpts,
		Controller:        self,
		Namespaces:        in.Namespaces,
		SessionProperties: in.SessionProperties,
		Expiry:            expiry.Unix(),
		PairingTopic:      string(in.PairingTopic),
	})
	if err != nil {
		return domain.Session{}, err
	}

	m := rpc.MustLookup(rpc.MethodSessionSettle)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.transport.Request(gctx, in.Topic, req, m.Request) })
	g.Go(func() error { return e.transport.Subscribe(gctx, in.Topic) })
	if err := g.Wait(); err != nil {
		return domain.Session{}, fmt.Errorf("settle %s: %w", in.Topic, err)
	}
	return session, nil
}

// pendingProposal returns the stored proposal for key. Expired proposals
// are evicted and reported as ErrProposalExpired.
func (e *Engine) pendingProposal(ctx context.Context, key string) (domain.Proposal, error) {
	p, ok, err := e.proposals.Get(ctx, key)
	if err != nil {
		return domain.Proposal{}, err
	}
	if !ok {
		return domain.Proposal{}, ErrProposalNotFound
	}
	if p.Expired(e.now()) {
		e.evictProposal(ctx, key)
		return domain.Proposal{}, ErrProposalExpired
	}
	return p, nil
}

// claimProposal reserves the proposal for key until release is called.
// A key already claimed reads as ErrProposalNotFound.
func (e *Engine) claimProposal(ctx context.Context, key string) (domain.Proposal, func(), error) {
	e.settlingMu.Lock()
	if _, busy := e.claims[key]; busy {
		e.settlingMu.Unlock()
		return domain.Proposal{}, nil, ErrProposalNotFound
	}
	e.claims[key] = struct{}{}
	e.settlingMu.Unlock()

	release := func() {
		e.settlingMu.Lock()
		delete(e.claims, key)
		e.settlingMu.Unlock()
	}
	p, err := e.pendingProposal(ctx, key)
	if err != nil {
		release()
		return domain.Proposal{}, nil, err
	}
	return p, release, nil
}

// evictProposal removes a proposal and its verify context.
func (e *Engine) evictProposal(ctx context.Context, key string) {
	if err := e.proposals.Delete(ctx, key); err != nil {
		e.log.Warn().Err(err).Str("proposer", key).Msg("evict proposal")
	}
	if err := e.verifyContexts.Delete(ctx, key); err != nil {
		e.log.Warn().Err(err).Str("proposer", key).Msg("evict verify context")
	}
}

// discardKeys undoes the key material of a failed approval. topic may be
// empty when no secret was stored yet.
func (e *Engine) discardKeys(ctx context.Context, topic domain.Topic, self domain.PublicKey) {
	var errs []error
	if topic != "" {
		errs = append(errs,
			e.transport.Unsubscribe(ctx, topic),
			e.keys.DeleteSecret(ctx, topic),
		)
	}
	errs = append(errs, e.keys.DeletePrivateKey(ctx, self))
	if err := errors.Join(errs...); err != nil {
		e.log.Warn().Err(err).Str("topic", string(topic)).Msg("discard key material")
	}
}
