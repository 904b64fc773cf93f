package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
	"walletlink/internal/services/sign"
)

// ErrRejected is returned by ProposeAndWait when the wallet declines.
var ErrRejected = errors.New("proposal rejected")

// App drives the engine for the two CLI roles: a wallet that answers
// proposals and an app that proposes sessions.
type App struct {
	*Wire
	cfg *Config
	log zerolog.Logger
}

func New(w *Wire, cfg *Config, log zerolog.Logger) *App {
	return &App{Wire: w, cfg: cfg, log: log.With().Str("component", "app").Logger()}
}

// ServeOptions controls the wallet role.
type ServeOptions struct {
	// URI is a pairing URI to join before serving; optional.
	URI string
	// Reject declines every proposal instead of approving it.
	Reject bool
}

// Serve runs the wallet role until ctx is cancelled. Proposals are
// approved with the configured accounts, or rejected when none apply.
// Authentication requests are declined; signing them is left to a
// wallet front end.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	events, cancel := a.Engine.Subscribe(
		sign.KindSessionProposal,
		sign.KindSessionAuthenticate,
		sign.KindSessionSettleResponse,
		sign.KindProposalAbandoned,
	)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Engine.Run(gctx) })
	g.Go(func() error {
		if opts.URI != "" {
			p, err := a.Pairings.Pair(gctx, opts.URI)
			if err != nil {
				return fmt.Errorf("pair: %w", err)
			}
			a.log.Info().Str("pairing", string(p.Topic)).Msg("paired")
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				a.handle(gctx, ev, opts)
			}
		}
	})
	return g.Wait()
}

func (a *App) handle(ctx context.Context, ev sign.Event, opts ServeOptions) {
	switch ev := ev.(type) {
	case sign.SessionProposalEvent:
		a.answerProposal(ctx, ev, opts)
	case sign.SessionAuthenticateEvent:
		a.log.Info().
			Uint64("id", ev.Request.ID).
			Str("domain", ev.Request.Payload.Domain).
			Str("validation", string(ev.Verify.Validation)).
			Msg("declining authentication request")
		a.Engine.RejectAuthenticate(ev.Request, reason.UserRejected.Reason())
	case sign.SessionSettleResponseEvent:
		if ev.Err != nil {
			a.log.Warn().Str("topic", string(ev.Topic)).Int("code", ev.Err.Code).Msg("peer refused settlement")
			return
		}
		a.log.Info().Str("topic", string(ev.Topic)).Msg("session acknowledged")
	case sign.ProposalAbandonedEvent:
		a.log.Warn().Err(ev.Err).Str("pairing", string(ev.PairingTopic)).Msg("proposal abandoned")
	}
}

func (a *App) answerProposal(ctx context.Context, ev sign.SessionProposalEvent, opts ServeOptions) {
	p := ev.Proposal
	log := a.log.With().
		Str("proposer", p.ProposerPublicKey).
		Str("name", p.Proposer.Name).
		Str("validation", string(ev.Verify.Validation)).
		Logger()

	if opts.Reject || ev.Verify.Validation == domain.ValidationScam {
		a.reject(ctx, log, p, reason.UserRejected.Reason())
		return
	}
	granted := namespace.FromAccounts(p.RequiredNamespaces, p.OptionalNamespaces, a.cfg.Wallet.Accounts)
	if len(granted) == 0 {
		a.reject(ctx, log, p, reason.UnsupportedAccounts.Reason())
		return
	}
	session, err := a.Engine.Approve(ctx, p.ProposerPublicKey, granted, p.SessionProperties)
	var v *namespace.Violation
	switch {
	case errors.As(err, &v):
		a.reject(ctx, log, p, v.Reason)
	case err != nil:
		log.Error().Err(err).Msg("approve failed")
	default:
		log.Info().Str("topic", string(session.Topic)).Msg("session settled, awaiting acknowledgement")
	}
}

func (a *App) reject(ctx context.Context, log zerolog.Logger, p domain.Proposal, r reason.Reason) {
	if err := a.Engine.Reject(ctx, p.ProposerPublicKey, r); err != nil {
		log.Error().Err(err).Msg("reject failed")
		return
	}
	log.Info().Int("code", r.Code).Msg("proposal rejected")
}

// ProposeAndWait creates a pairing, hands its URI to onURI, proposes a
// session with the required namespaces and waits for the wallet's answer.
func (a *App) ProposeAndWait(ctx context.Context, required map[string]domain.ProposalNamespace, onURI func(uri string)) (domain.Session, error) {
	events, unsubscribe := a.Engine.Subscribe(sign.KindSessionApproved, sign.KindSessionRejected, sign.KindProposalAbandoned)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var session domain.Session
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Engine.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		p, err := a.Pairings.Create(gctx, []string{rpc.MethodSessionPropose})
		if err != nil {
			return fmt.Errorf("create pairing: %w", err)
		}
		onURI(p.URI)
		if _, err := a.Engine.Propose(gctx, sign.ProposeInput{PairingTopic: p.Topic, RequiredNamespaces: required}); err != nil {
			return fmt.Errorf("propose: %w", err)
		}
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev := <-events:
				switch ev := ev.(type) {
				case sign.SessionApprovedEvent:
					if ev.Session.PairingTopic == p.Topic {
						session = ev.Session
						return nil
					}
				case sign.SessionRejectedEvent:
					if ev.PairingTopic == p.Topic {
						return fmt.Errorf("%w: %s", ErrRejected, ev.Reason)
					}
				case sign.ProposalAbandonedEvent:
					if ev.PairingTopic == p.Topic {
						return ev.Err
					}
				}
			}
		}
	})
	err := g.Wait()
	return session, err
}

// ListSessions returns every stored session.
func (a *App) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return a.Sessions.List(ctx)
}
