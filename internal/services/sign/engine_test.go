package sign_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
	"walletlink/internal/relay"
	"walletlink/internal/services/keys"
	"walletlink/internal/services/pairing"
	"walletlink/internal/services/sign"
	"walletlink/internal/store"
)

// party is a complete node on a shared in-memory relay.
type party struct {
	engine    *sign.Engine
	keys      *keys.Service
	pairings  *pairing.Service
	sessions  *store.Map[domain.Session]
	proposals *store.Map[domain.Proposal]
}

func newParty(t *testing.T, hub *relay.Hub, name string) *party {
	t.Helper()
	kv := store.NewMemory()
	ks := keys.New(kv, store.BucketKeys)
	tr := relay.NewInteractor(hub.Client(name, zerolog.Nop()), ks,
		relay.NewHistory(store.NewMap[relay.HistoryRecord](kv, store.BucketHistory)), zerolog.Nop())
	t.Cleanup(func() { _ = tr.Close() })

	p := &party{
		keys:      ks,
		pairings:  pairing.New(ks, tr, store.NewMap[domain.Pairing](kv, store.BucketPairings), zerolog.Nop()),
		sessions:  store.NewMap[domain.Session](kv, store.BucketSessions),
		proposals: store.NewMap[domain.Proposal](kv, store.BucketProposals),
	}
	p.engine = sign.New(sign.Deps{
		Transport:      tr,
		Keys:           ks,
		Verifier:       &stubVerifier{err: errors.New("verify service unreachable")},
		Pairings:       p.pairings,
		Sessions:       p.sessions,
		Proposals:      p.proposals,
		ProposalLinks:  store.NewMap[domain.Proposal](kv, store.BucketProposalLinks),
		VerifyContexts: store.NewMap[domain.VerifyContext](kv, store.BucketVerify),
		Log:            zerolog.Nop(),
	}, sign.Config{Self: domain.Metadata{Name: name, URL: "https://" + name + ".example"}})
	run(t, p.engine)
	return p
}

// pair connects app and wallet on a fresh pairing topic.
func pair(t *testing.T, app, wallet *party) domain.Pairing {
	t.Helper()
	ctx := context.Background()
	p, err := app.pairings.Create(ctx, []string{rpc.MethodSessionPropose})
	require.NoError(t, err)
	_, err = wallet.pairings.Pair(ctx, p.URI)
	require.NoError(t, err)
	return p
}

func TestEngine_ProposeApproveSettle(t *testing.T) {
	hub := relay.NewHub()
	app, wallet := newParty(t, hub, "app"), newParty(t, hub, "wallet")
	ctx := context.Background()
	p := pair(t, app, wallet)

	walletEvents, cancelWallet := wallet.engine.Subscribe(sign.KindSessionProposal, sign.KindSessionSettleResponse)
	defer cancelWallet()
	appEvents, cancelApp := app.engine.Subscribe(sign.KindSessionApproved)
	defer cancelApp()

	sent, err := app.engine.Propose(ctx, sign.ProposeInput{PairingTopic: p.Topic, RequiredNamespaces: requiredEIP155()})
	require.NoError(t, err)

	proposal := waitFor[sign.SessionProposalEvent](t, walletEvents)
	assert.Equal(t, sent.ProposerPublicKey, proposal.Proposal.ProposerPublicKey)
	assert.Equal(t, "app", proposal.Proposal.Proposer.Name)
	assert.Nil(t, proposal.Verify.Origin, "unverified when the verify service is down")
	assert.Nil(t, proposal.Verify.IsScam)

	session, err := wallet.engine.Approve(ctx, proposal.Proposal.ProposerPublicKey, grantEIP155(accountA, accountB), nil)
	require.NoError(t, err)
	assert.False(t, session.Acknowledged)

	approved := waitFor[sign.SessionApprovedEvent](t, appEvents)
	assert.Equal(t, session.Topic, approved.Session.Topic)
	assert.True(t, approved.Session.Acknowledged)
	assert.Equal(t, session.Self.PublicKey, approved.Session.Controller)
	assert.ElementsMatch(t, []string{accountA, accountB}, approved.Session.Namespaces["eip155"].Accounts)

	ack := waitFor[sign.SessionSettleResponseEvent](t, walletEvents)
	assert.Nil(t, ack.Err)
	assert.Equal(t, session.Topic, ack.Topic)

	stored, ok, err := wallet.sessions.Get(ctx, string(session.Topic))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Acknowledged)

	for _, side := range []*party{app, wallet} {
		pr, ok, err := side.pairings.Get(ctx, p.Topic)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, pr.Active)
	}

	_, err = wallet.engine.Approve(ctx, proposal.Proposal.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrProposalNotFound)
}

func TestEngine_RejectedProposalCleansUpProposer(t *testing.T) {
	hub := relay.NewHub()
	app, wallet := newParty(t, hub, "app"), newParty(t, hub, "wallet")
	ctx := context.Background()
	p := pair(t, app, wallet)

	walletEvents, cancelWallet := wallet.engine.Subscribe(sign.KindSessionProposal)
	defer cancelWallet()
	appEvents, cancelApp := app.engine.Subscribe(sign.KindSessionRejected)
	defer cancelApp()

	sent, err := app.engine.Propose(ctx, sign.ProposeInput{PairingTopic: p.Topic, RequiredNamespaces: requiredEIP155()})
	require.NoError(t, err)
	proposal := waitFor[sign.SessionProposalEvent](t, walletEvents)

	require.NoError(t, wallet.engine.Reject(ctx, proposal.Proposal.ProposerPublicKey, reason.UserRejected.Reason()))

	rejected := waitFor[sign.SessionRejectedEvent](t, appEvents)
	assert.Equal(t, p.Topic, rejected.PairingTopic)
	assert.Equal(t, reason.UserRejected.Reason(), rejected.Reason)

	_, ok, err := app.pairings.Get(ctx, p.Topic)
	require.NoError(t, err)
	assert.False(t, ok, "inactive pairing removed on the proposing side")
	_, ok, err = app.proposals.Get(ctx, sent.ProposerPublicKey)
	require.NoError(t, err)
	assert.False(t, ok)

	proposer, err := domain.ParsePublicKey(sent.ProposerPublicKey)
	require.NoError(t, err)
	_, _, err = app.keys.Agree(ctx, proposer, proposer)
	require.ErrorIs(t, err, keys.ErrPrivateKeyNotFound)
}

func TestEngine_ProposeRequiresPairing(t *testing.T) {
	hub := relay.NewHub()
	app := newParty(t, hub, "app")

	_, err := app.engine.Propose(context.Background(), sign.ProposeInput{PairingTopic: "missing", RequiredNamespaces: requiredEIP155()})
	require.ErrorIs(t, err, sign.ErrPairingNotFound)
}
