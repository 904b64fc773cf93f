package sign

import (
	"context"
	"fmt"
	"time"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/rpc"
)

// ProposeInput describes a session the application wants from a wallet.
type ProposeInput struct {
	PairingTopic       domain.Topic
	RequiredNamespaces map[string]domain.ProposalNamespace
	OptionalNamespaces map[string]domain.ProposalNamespace
	SessionProperties  map[string]string
}

// Propose sends wc_sessionPropose on an existing pairing. The proposal is
// stored under the fresh proposer key until the wallet answers.
func (e *Engine) Propose(ctx context.Context, in ProposeInput) (domain.Proposal, error) {
	if _, ok, err := e.pairings.Get(ctx, in.PairingTopic); err != nil {
		return domain.Proposal{}, err
	} else if !ok {
		return domain.Proposal{}, fmt.Errorf("%w: %s", ErrPairingNotFound, in.PairingTopic)
	}
	if err := namespace.ValidateProposal(in.RequiredNamespaces); err != nil {
		return domain.Proposal{}, err
	}
	if err := namespace.ValidateProposal(in.OptionalNamespaces); err != nil {
		return domain.Proposal{}, err
	}
	if err := e.waitConnected(ctx); err != nil {
		return domain.Proposal{}, err
	}

	self, err := e.keys.CreateKeyPair(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	expiry := e.now().Add(e.cfg.ProposalTTL).Truncate(time.Second)
	relays := []domain.RelayProtocolOptions{{Protocol: domain.DefaultRelayProtocol}}
	req, err := rpc.NewRequest(rpc.MethodSessionPropose, rpc.ProposeParams{
		RequiredNamespaces: in.RequiredNamespaces,
		OptionalNamespaces: in.OptionalNamespaces,
		Relays:             relays,
		Proposer:           domain.Participant{PublicKey: self.Hex(), Metadata: e.cfg.Self},
		SessionProperties:  in.SessionProperties,
		ExpiryTimestamp:    expiry.Unix(),
	})
	if err != nil {
		return domain.Proposal{}, err
	}

	proposal := domain.Proposal{
		RequestID:          req.ID,
		PairingTopic:       in.PairingTopic,
		ProposerPublicKey:  self.Hex(),
		Proposer:           e.cfg.Self,
		RequiredNamespaces: in.RequiredNamespaces,
		OptionalNamespaces: in.OptionalNamespaces,
		Relays:             relays,
		SessionProperties:  in.SessionProperties,
		Expiry:             expiry,
	}
	if err := e.proposals.Set(ctx, self.Hex(), proposal); err != nil {
		e.discardKeys(ctx, "", self)
		return domain.Proposal{}, err
	}

	m := rpc.MustLookup(rpc.MethodSessionPropose)
	if err := e.transport.Request(ctx, in.PairingTopic, req, m.Request); err != nil {
		if derr := e.proposals.Delete(ctx, self.Hex()); derr != nil {
			e.log.Warn().Err(derr).Msg("drop unsent proposal")
		}
		e.discardKeys(ctx, "", self)
		return domain.Proposal{}, err
	}
	e.log.Info().Str("pairing", string(in.PairingTopic)).Uint64("id", req.ID).Msg("proposal sent")
	return proposal, nil
}
