package sign

import (
	"context"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
)

// verifyThenDeliver assesses raw in the background, stores the context
// under id and passes it to deliver. The result is stored even when the
// flow it belongs to resolved in the meantime.
func (e *Engine) verifyThenDeliver(id string, raw []byte, claimed string, deliver func(domain.VerifyContext)) {
	e.background(func(ctx context.Context) {
		vc := e.assess(ctx, id, raw, claimed)
		if err := e.verifyContexts.Set(ctx, id, vc); err != nil {
			e.log.Warn().Err(err).Str("id", id).Msg("store verify context")
		}
		deliver(vc)
	})
}

// assess never fails: any verifier error yields an unverified context.
func (e *Engine) assess(ctx context.Context, id string, raw []byte, claimed string) domain.VerifyContext {
	fp := crypto.Fingerprint(raw)
	a, err := e.verifier.Assess(ctx, fp)
	if err != nil {
		e.log.Debug().Err(err).Str("id", id).Str("fingerprint", fp).Msg("verification unavailable")
		a = domain.Attestation{}
	}
	return e.verifier.BuildContext(id, a, claimed)
}
