package sign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

func (e *Engine) onProposeRequest(ctx context.Context, in rpc.Inbound) {
	m := rpc.MustLookup(rpc.MethodSessionPropose)
	log := e.log.With().Str("pairing", string(in.Topic)).Uint64("id", in.Request.ID).Logger()

	var params rpc.ProposeParams
	if err := json.Unmarshal(in.Request.Params, &params); err != nil {
		log.Warn().Err(err).Msg("malformed proposal")
		e.respondError(ctx, in.Topic, in.Request.ID, reason.InvalidRequestParams.Reason(), m.AutoReject)
		return
	}

	pairing, ok, err := e.pairings.Get(ctx, in.Topic)
	if err != nil {
		log.Error().Err(err).Msg("pairing lookup")
		return
	}
	if ok && pairing.SupportsMethod(rpc.MethodSessionAuthenticate) && e.events.count(KindSessionAuthenticate) > 0 {
		log.Debug().Msg("ignoring proposal on pairing that authenticates")
		return
	}

	if err := namespace.ValidateProposal(params.RequiredNamespaces); err != nil {
		e.rejectViolation(ctx, in, err, m.AutoReject)
		return
	}
	if err := namespace.ValidateProposal(params.OptionalNamespaces); err != nil {
		e.rejectViolation(ctx, in, err, m.AutoReject)
		return
	}

	proposal := proposalFromParams(in.Topic, in.Request.ID, params)
	key := proposal.ProposerPublicKey
	if err := e.proposals.Set(ctx, key, proposal); err != nil {
		log.Error().Err(err).Msg("store proposal")
		return
	}
	if err := e.pairings.MarkReceived(ctx, in.Topic); err != nil {
		log.Warn().Err(err).Msg("mark pairing received")
	}

	log.Info().Str("proposer", key).Msg("proposal received")

	deliver := func(vc domain.VerifyContext) {
		e.notify(SessionProposalEvent{Proposal: proposal, Verify: vc})
	}
	if vc, ok, err := e.verifyContexts.Get(ctx, key); err == nil && ok {
		deliver(vc)
		return
	}
	e.verifyThenDeliver(key, in.Raw, params.Proposer.Metadata.URL, deliver)
}

func (e *Engine) rejectViolation(ctx context.Context, in rpc.Inbound, err error, rt rpc.Route) {
	r := reason.InvalidRequestParams.Reason()
	var v *namespace.Violation
	if errors.As(err, &v) {
		r = v.Reason
	}
	e.log.Info().Err(err).Str("topic", string(in.Topic)).Uint64("id", in.Request.ID).Msg("rejecting invalid namespaces")
	e.respondError(ctx, in.Topic, in.Request.ID, r, rt)
}

func proposalFromParams(topic domain.Topic, id uint64, p rpc.ProposeParams) domain.Proposal {
	proposal := domain.Proposal{
		RequestID:          id,
		PairingTopic:       topic,
		ProposerPublicKey:  p.Proposer.PublicKey,
		Proposer:           p.Proposer.Metadata,
		RequiredNamespaces: p.RequiredNamespaces,
		OptionalNamespaces: p.OptionalNamespaces,
		Relays:             p.Relays,
		SessionProperties:  p.SessionProperties,
	}
	if p.ExpiryTimestamp > 0 {
		proposal.Expiry = unixTime(p.ExpiryTimestamp)
	}
	return proposal
}

// onProposeResponse runs on the proposing side when the wallet answers.
func (e *Engine) onProposeResponse(ctx context.Context, in rpc.Inbound) {
	var params rpc.ProposeParams
	if err := json.Unmarshal(in.Request.Params, &params); err != nil {
		e.abandon(in, fmt.Errorf("decode own proposal: %w", err))
		return
	}
	self, err := domain.ParsePublicKey(params.Proposer.PublicKey)
	if err != nil {
		e.abandon(in, fmt.Errorf("own proposer key: %w", err))
		return
	}
	if in.Kind == rpc.KindError {
		e.onProposeRejected(ctx, in, self)
		return
	}

	var result rpc.ApproveResult
	if err := json.Unmarshal(in.Response.Result, &result); err != nil {
		e.abandon(in, fmt.Errorf("%s: %w", reason.InvalidResponseParams.Reason().Message, err))
		return
	}
	peer, err := domain.ParsePublicKey(result.ResponderPublicKey)
	if err != nil {
		e.abandon(in, fmt.Errorf("responder key: %w", err))
		return
	}
	key, topic, err := e.keys.Agree(ctx, self, peer)
	if err != nil {
		e.abandon(in, fmt.Errorf("%w: %v", ErrAgreementMissingOrInvalid, err))
		return
	}
	if err := e.keys.SetSecret(ctx, topic, key); err != nil {
		e.abandon(in, err)
		return
	}

	proposal, ok, err := e.proposals.Get(ctx, self.Hex())
	if err != nil {
		e.abandon(in, err)
		return
	}
	if !ok {
		proposal = proposalFromParams(in.Topic, in.Request.ID, params)
	}
	if err := e.proposalLinks.Set(ctx, string(topic), proposal); err != nil {
		e.abandon(in, err)
		return
	}
	if err := e.transport.Subscribe(ctx, topic); err != nil {
		e.abandon(in, fmt.Errorf("subscribe session topic: %w", err))
		return
	}
	e.log.Info().Str("pairing", string(in.Topic)).Str("topic", string(topic)).Msg("proposal approved by peer")
}

func (e *Engine) onProposeRejected(ctx context.Context, in rpc.Inbound, self domain.PublicKey) {
	log := e.log.With().Str("pairing", string(in.Topic)).Logger()

	pairing, ok, err := e.pairings.Get(ctx, in.Topic)
	if err != nil {
		log.Warn().Err(err).Msg("pairing lookup")
	} else if ok && !pairing.Active {
		if err := e.pairings.Delete(ctx, in.Topic); err != nil {
			log.Warn().Err(err).Msg("delete pairing")
		}
	}
	if err := e.keys.DeletePrivateKey(ctx, self); err != nil {
		log.Warn().Err(err).Msg("delete proposer key")
	}
	if err := e.proposals.Delete(ctx, self.Hex()); err != nil {
		log.Warn().Err(err).Msg("delete proposal")
	}

	r := reason.Reason{Code: in.Response.Error.Code, Message: in.Response.Error.Message}
	log.Info().Int("code", r.Code).Str("message", r.Message).Msg("proposal rejected by peer")
	e.notify(SessionRejectedEvent{PairingTopic: in.Topic, Reason: r})
}

// abandon records that an approval of our proposal could not be used.
func (e *Engine) abandon(in rpc.Inbound, err error) {
	e.log.Error().Err(err).Str("pairing", string(in.Topic)).Uint64("id", in.Request.ID).Msg("proposal abandoned")
	e.notify(ProposalAbandonedEvent{PairingTopic: in.Topic, RequestID: in.Request.ID, Err: err})
}
