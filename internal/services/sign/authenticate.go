package sign

import (
	"context"
	"encoding/json"
	"strconv"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

// onAuthenticateRequest hands a wc_sessionAuthenticate request to the
// application once its verify context is known.
func (e *Engine) onAuthenticateRequest(ctx context.Context, in rpc.Inbound) {
	m := rpc.MustLookup(rpc.MethodSessionAuthenticate)
	log := e.log.With().Str("pairing", string(in.Topic)).Uint64("id", in.Request.ID).Logger()

	var params rpc.AuthenticateParams
	if err := json.Unmarshal(in.Request.Params, &params); err != nil {
		log.Warn().Err(err).Msg("malformed authenticate request")
		e.respondError(ctx, in.Topic, in.Request.ID, reason.InvalidRequestParams.Reason(), m.AutoReject)
		return
	}
	req := domain.AuthenticationRequest{
		ID:        in.Request.ID,
		Topic:     in.Topic,
		Payload:   params.AuthPayload,
		Requester: params.Requester,
	}
	if params.ExpiryTimestamp > 0 {
		req.Expiry = unixTime(params.ExpiryTimestamp)
		if !e.now().Before(req.Expiry) {
			log.Info().Msg("authenticate request expired")
			e.respondError(ctx, in.Topic, in.Request.ID, reason.SessionRequestExpired.Reason(), m.AutoReject)
			return
		}
	}

	if err := e.pairings.MarkReceived(ctx, in.Topic); err != nil {
		log.Warn().Err(err).Msg("mark pairing received")
	}
	log.Info().Str("domain", params.AuthPayload.Domain).Msg("authenticate request received")
	e.verifyThenDeliver(requestKey(in.Request.ID), in.Raw, params.Requester.Metadata.URL, func(vc domain.VerifyContext) {
		e.notify(SessionAuthenticateEvent{Request: req, Verify: vc})
	})
}

// RejectAuthenticate answers a pending authentication request with r. The
// response is sent in the background and failures are only logged.
func (e *Engine) RejectAuthenticate(req domain.AuthenticationRequest, r reason.Reason) {
	m := rpc.MustLookup(rpc.MethodSessionAuthenticate)
	e.background(func(ctx context.Context) {
		if err := e.transport.RespondError(ctx, req.Topic, req.ID, r, m.Approve); err != nil {
			e.log.Warn().Err(err).Str("pairing", string(req.Topic)).Uint64("id", req.ID).Msg("authenticate rejection failed")
		}
		if err := e.verifyContexts.Delete(ctx, requestKey(req.ID)); err != nil {
			e.log.Warn().Err(err).Uint64("id", req.ID).Msg("evict verify context")
		}
	})
}

func requestKey(id uint64) string { return strconv.FormatUint(id, 10) }
