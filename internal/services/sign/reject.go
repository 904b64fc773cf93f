package sign

import (
	"context"
	"errors"

	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

// Reject declines the pending proposal from proposerKey and tells the
// proposer why. An expired proposal is cleaned up like a rejected one but
// reported as ErrProposalNotFound, the same as a proposal that never
// existed.
func (e *Engine) Reject(ctx context.Context, proposerKey string, r reason.Reason) error {
	proposal, release, err := e.claimProposal(ctx, proposerKey)
	if errors.Is(err, ErrProposalExpired) {
		return ErrProposalNotFound
	}
	if err != nil {
		return err
	}
	defer release()

	m := rpc.MustLookup(rpc.MethodSessionPropose)
	if err := e.transport.RespondError(ctx, proposal.PairingTopic, proposal.RequestID, r, m.Reject); err != nil {
		return err
	}
	e.evictProposal(ctx, proposerKey)

	pairing, ok, err := e.pairings.Get(ctx, proposal.PairingTopic)
	if err != nil {
		return err
	}
	if ok && !pairing.Active {
		if err := e.pairings.Delete(ctx, proposal.PairingTopic); err != nil {
			return err
		}
	}
	e.log.Info().Str("pairing", string(proposal.PairingTopic)).Int("code", r.Code).Msg("proposal rejected")
	return nil
}
