package sign_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
	"walletlink/internal/services/sign"
)

func TestApprove_EmptyNamespacesFailsBeforeNetwork(t *testing.T) {
	u := newUnit(t)
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	_, err := u.engine.Approve(context.Background(), p.ProposerPublicKey, nil, nil)
	require.ErrorIs(t, err, sign.ErrEmptyNamespaces)

	_, err = u.engine.Approve(context.Background(), p.ProposerPublicKey, map[string]domain.Namespace{}, nil)
	require.ErrorIs(t, err, sign.ErrEmptyNamespaces)
	assert.Zero(t, u.tr.networkCalls())
}

func TestApprove_UnknownProposal(t *testing.T) {
	u := newUnit(t)
	_, err := u.engine.Approve(context.Background(), "00ff", grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrProposalNotFound)
}

func TestApprove_ExpiredProposalIsEvicted(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	p, _, _ := u.seedProposal(t, "pairing", time.Now().Add(-time.Minute))

	_, err := u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrProposalExpired)

	_, ok, err := u.proposals.Get(ctx, p.ProposerPublicKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrProposalNotFound)
}

func TestApprove_NotConnected(t *testing.T) {
	u := newUnit(t)
	u.tr.setConnected(false)
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	_, err := u.engine.Approve(context.Background(), p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrNetworkNotConnected)
	assert.Zero(t, u.tr.openStatusSubscriptions())
	assert.Empty(t, u.tr.callsOf("request"))
}

func TestApprove_CancelledConnectivityWaitReleasesSubscription(t *testing.T) {
	u := newUnit(t)
	u.tr.silent = true
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, u.tr.openStatusSubscriptions())
}

func TestApprove_ConformanceViolationIsSurfaced(t *testing.T) {
	u := newUnit(t)
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	grant := map[string]domain.Namespace{
		"eip155": {Accounts: []string{accountA}, Methods: []string{"eth_sign"}, Events: []string{"chainChanged"}},
	}
	_, err := u.engine.Approve(context.Background(), p.ProposerPublicKey, grant, nil)

	var v *namespace.Violation
	require.True(t, errors.As(err, &v), "got %v", err)
	assert.Equal(t, "eip155", v.Key)
	assert.Equal(t, reason.UserRejectedMethods.Reason().Code, v.Reason.Code)
	assert.Empty(t, u.tr.callsOf("request"))
}

func TestApprove_SettleFailureLeavesNoSession(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	u.tr.requestErr = errors.New("relay refused publish")
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	_, err := u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.Error(t, err)

	keys, err := u.sessions.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok, err := u.proposals.Get(ctx, p.ProposerPublicKey)
	require.NoError(t, err)
	assert.True(t, ok, "proposal stays pending after a failed approval")
}

func TestApprove_ResponseFailureLeavesNoSession(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	u.tr.respondErr = errors.New("relay refused response")
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	_, err := u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.Error(t, err)

	keys, err := u.sessions.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok, err := u.proposals.Get(ctx, p.ProposerPublicKey)
	require.NoError(t, err)
	assert.True(t, ok, "proposal stays pending after a failed approval")

	for _, c := range u.tr.callsOf("subscribe") {
		_, ok, err := u.keys.Secret(ctx, c.Topic)
		require.NoError(t, err)
		assert.False(t, ok, "session secret discarded")
	}
}

func TestApprove_ConcurrentCallsSettleOnce(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
		}(i)
	}
	wg.Wait()

	var approved int
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		require.ErrorIs(t, err, sign.ErrProposalNotFound)
	}
	assert.Equal(t, 1, approved)

	keys, err := u.sessions.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Len(t, u.tr.callsOf("result"), 1)
}

func TestApprove_RejectDuringApprovalFails(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	u.tr.silent = true
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})

	approveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := u.engine.Approve(approveCtx, p.ProposerPublicKey, grantEIP155(accountA), nil)
		done <- err
	}()
	eventually(t, func() bool { return u.tr.openStatusSubscriptions() == 1 }, "approval waiting for connectivity")

	require.ErrorIs(t, u.engine.Reject(ctx, p.ProposerPublicKey, reason.UserRejected.Reason()), sign.ErrProposalNotFound)
	assert.Empty(t, u.tr.callsOf("error"))

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, u.engine.Reject(ctx, p.ProposerPublicKey, reason.UserRejected.Reason()))
}

func TestApprove_SessionTopicMatchesProposerAgreement(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	pairing, err := u.pairings.Create(ctx, []string{rpc.MethodSessionPropose})
	require.NoError(t, err)
	p, proposerKeys, proposerPub := u.seedProposal(t, pairing.Topic, time.Now().Add(time.Hour))

	events, cancel := u.engine.Subscribe(sign.KindSessionSettled)
	defer cancel()

	session, err := u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA, accountB), nil)
	require.NoError(t, err)
	assert.False(t, session.Acknowledged)
	assert.True(t, session.IsController())
	assert.Equal(t, pairing.Topic, session.PairingTopic)
	assert.WithinDuration(t, time.Now(), session.CreatedAt, time.Minute)
	assert.True(t, session.CreatedAt.Before(session.Expiry))

	results := u.tr.callsOf("result")
	require.Len(t, results, 1)
	assert.Equal(t, rpc.TagSessionProposeApprove, results[0].Route.Tag)
	assert.Equal(t, pairing.Topic, results[0].Topic)
	assert.Equal(t, p.RequestID, results[0].ID)

	approval, ok := results[0].Result.(rpc.ApproveResult)
	require.True(t, ok)
	responder, err := domain.ParsePublicKey(approval.ResponderPublicKey)
	require.NoError(t, err)
	_, topic, err := proposerKeys.Agree(ctx, proposerPub, responder)
	require.NoError(t, err)
	assert.Equal(t, topic, session.Topic)

	requests := u.tr.callsOf("request")
	require.Len(t, requests, 1)
	assert.Equal(t, rpc.MethodSessionSettle, requests[0].Method)
	assert.Equal(t, rpc.TagSessionSettle, requests[0].Route.Tag)
	assert.Equal(t, session.Topic, requests[0].Topic)

	stored, ok, err := u.sessions.Get(ctx, string(session.Topic))
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, stored.Acknowledged)

	settled := waitFor[sign.SessionSettledEvent](t, events)
	assert.Equal(t, session.Topic, settled.Session.Topic)

	active, _, err := u.pairings.Get(ctx, pairing.Topic)
	require.NoError(t, err)
	assert.True(t, active.Active)
	require.NotNil(t, active.PeerMetadata)
	assert.Equal(t, "dapp", active.PeerMetadata.Name)

	_, err = u.engine.Approve(ctx, p.ProposerPublicKey, grantEIP155(accountA), nil)
	require.ErrorIs(t, err, sign.ErrProposalNotFound)
	assert.Zero(t, u.tr.openStatusSubscriptions())
}

func TestSettle_RequiresSecretAndRelay(t *testing.T) {
	u := newUnit(t)
	ctx := context.Background()
	p, _, _ := u.seedProposal(t, "pairing", time.Time{})
	self, err := u.keys.CreateKeyPair(ctx)
	require.NoError(t, err)

	in := sign.SettleInput{Topic: "no-secret", Proposal: p, SelfPublicKey: self, Namespaces: grantEIP155(accountA), PairingTopic: p.PairingTopic}
	_, err = u.engine.Settle(ctx, in)
	require.ErrorIs(t, err, sign.ErrAgreementMissingOrInvalid)

	key, topic, err := u.keys.GenerateSymmetricKey(ctx)
	require.NoError(t, err)
	require.NoError(t, u.keys.SetSecret(ctx, topic, key))
	in.Topic = topic
	in.Proposal.Relays = nil
	_, err = u.engine.Settle(ctx, in)
	require.ErrorIs(t, err, sign.ErrRelayNotFound)

	in.Proposal.Relays = []domain.RelayProtocolOptions{{Protocol: domain.DefaultRelayProtocol}}
	session, err := u.engine.Settle(ctx, in)
	require.NoError(t, err)
	assert.False(t, session.Acknowledged)
	assert.WithinDuration(t, time.Now().Add(sign.DefaultSessionTTL), session.Expiry, time.Minute)
	assert.Len(t, u.tr.callsOf("subscribe"), 1)

	_, ok, err := u.sessions.Get(ctx, string(topic))
	require.NoError(t, err)
	assert.False(t, ok, "settle leaves persistence to the caller")
}
