package sign

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }

// onSettleRequest runs on the proposing side when the wallet settles.
func (e *Engine) onSettleRequest(ctx context.Context, in rpc.Inbound) {
	m := rpc.MustLookup(rpc.MethodSessionSettle)
	log := e.log.With().Str("topic", string(in.Topic)).Uint64("id", in.Request.ID).Logger()
	fail := func(r reason.Reason) { e.respondError(ctx, in.Topic, in.Request.ID, r, m.Reject) }

	proposal, ok, err := e.proposalLinks.Get(ctx, string(in.Topic))
	if err != nil {
		log.Error().Err(err).Msg("proposal link lookup")
		fail(reason.SessionSettlementFailed.Reason())
		return
	}
	if !ok {
		s, found, err := e.sessions.Get(ctx, string(in.Topic))
		if err != nil {
			log.Error().Err(err).Msg("session lookup")
		}
		if found && s.Acknowledged {
			log.Debug().Msg("session already settled")
			e.ackSettle(in)
			return
		}
		log.Warn().Msg("settle request without pending proposal")
		fail(reason.SessionSettlementFailed.Reason())
		return
	}

	var params rpc.SettleParams
	if err := json.Unmarshal(in.Request.Params, &params); err != nil {
		log.Warn().Err(err).Msg("malformed settlement")
		fail(reason.InvalidSessionSettlementRequest.Reason())
		return
	}
	if err := namespace.ValidateSession(params.Namespaces); err != nil {
		log.Warn().Err(err).Msg("malformed settlement namespaces")
		fail(reason.InvalidSessionSettlementRequest.Reason().WithMessage(err.Error()))
		return
	}
	if err := namespace.Conform(params.Namespaces, proposal.RequiredNamespaces, e.cfg.Namespaces); err != nil {
		var v *namespace.Violation
		if errors.As(err, &v) {
			log.Info().Err(err).Msg("settlement does not satisfy proposal")
			fail(v.Reason)
			return
		}
		fail(reason.InvalidSessionSettlementRequest.Reason())
		return
	}

	if _, ok, err := e.keys.Secret(ctx, in.Topic); err != nil || !ok {
		log.Error().Err(err).Bool("found", ok).Msg("settle request on topic without secret")
		fail(reason.SessionSettlementFailed.Reason())
		return
	}

	session := domain.Session{
		Topic:              in.Topic,
		PairingTopic:       proposal.PairingTopic,
		Relay:              params.Relay,
		CreatedAt:          e.now(),
		Expiry:             unixTime(params.Expiry),
		Self:               domain.Participant{PublicKey: proposal.ProposerPublicKey, Metadata: proposal.Proposer},
		Peer:               params.Controller,
		Controller:         params.Controller.PublicKey,
		Namespaces:         params.Namespaces,
		RequiredNamespaces: proposal.RequiredNamespaces,
		OptionalNamespaces: proposal.OptionalNamespaces,
		SessionProperties:  params.SessionProperties,
		Acknowledged:       true,
	}
	if err := e.sessions.Set(ctx, string(in.Topic), session); err != nil {
		log.Error().Err(err).Msg("store session")
		fail(reason.SessionSettlementFailed.Reason())
		return
	}
	if err := e.pairings.Activate(ctx, proposal.PairingTopic, &params.Controller.Metadata); err != nil {
		log.Warn().Err(err).Msg("activate pairing")
	}
	e.ackSettle(in)
	if err := e.proposalLinks.Delete(ctx, string(in.Topic)); err != nil {
		log.Warn().Err(err).Msg("delete proposal link")
	}
	if err := e.proposals.Delete(ctx, proposal.ProposerPublicKey); err != nil {
		log.Warn().Err(err).Msg("delete proposal")
	}
	log.Info().Str("controller", session.Controller).Msg("session settled")
	e.notify(SessionApprovedEvent{Session: session})
}

func (e *Engine) ackSettle(in rpc.Inbound) {
	m := rpc.MustLookup(rpc.MethodSessionSettle)
	e.background(func(ctx context.Context) {
		if err := e.transport.RespondResult(ctx, in.Topic, in.Request.ID, true, m.Approve); err != nil {
			e.log.Warn().Err(err).Str("topic", string(in.Topic)).Msg("settle acknowledgement failed")
		}
	})
}

// onSettleResponse runs on the approving side when the proposer answers
// our settlement.
func (e *Engine) onSettleResponse(ctx context.Context, in rpc.Inbound) {
	log := e.log.With().Str("topic", string(in.Topic)).Logger()

	e.awaitSettle(ctx, in.Topic)
	session, ok, err := e.sessions.Get(ctx, string(in.Topic))
	if err != nil {
		log.Error().Err(err).Msg("session lookup")
		return
	}
	if !ok {
		log.Warn().Str("kind", in.Kind.String()).Msg("settle response for unknown session")
		return
	}

	if in.Kind == rpc.KindResult {
		session.Acknowledged = true
		if err := e.sessions.Set(ctx, string(in.Topic), session); err != nil {
			log.Error().Err(err).Msg("store acknowledged session")
			return
		}
		log.Info().Msg("session acknowledged")
		e.notify(SessionSettleResponseEvent{Topic: in.Topic, Session: session})
		return
	}

	var errs []error
	errs = append(errs,
		e.transport.Unsubscribe(ctx, in.Topic),
		e.sessions.Delete(ctx, string(in.Topic)),
		e.keys.DeleteSecret(ctx, in.Topic),
	)
	if self, err := domain.ParsePublicKey(session.Self.PublicKey); err == nil {
		errs = append(errs, e.keys.DeletePrivateKey(ctx, self))
	} else {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("tear down rejected session")
	}

	r := reason.Reason{Code: in.Response.Error.Code, Message: in.Response.Error.Message}
	log.Info().Int("code", r.Code).Str("message", r.Message).Msg("settlement rejected by peer")
	e.notify(SessionSettleResponseEvent{Topic: in.Topic, Err: &r})
}
