package pairing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/rpc"
	"walletlink/internal/relay"
	"walletlink/internal/services/keys"
	"walletlink/internal/services/pairing"
	"walletlink/internal/store"
)

type node struct {
	keys     *keys.Service
	pairings *pairing.Service
}

func newNode(t *testing.T, hub *relay.Hub, id string) node {
	t.Helper()
	kv := store.NewMemory()
	ks := keys.New(kv, store.BucketKeys)
	tr := relay.NewInteractor(hub.Client(id, zerolog.Nop()), ks,
		relay.NewHistory(store.NewMap[relay.HistoryRecord](kv, store.BucketHistory)), zerolog.Nop())
	t.Cleanup(func() { _ = tr.Close() })
	return node{keys: ks, pairings: pairing.New(ks, tr, store.NewMap[domain.Pairing](kv, store.BucketPairings), zerolog.Nop())}
}

func TestURI_RoundTrip(t *testing.T) {
	u := pairing.URI{
		Topic:         "7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9",
		SymKey:        domain.SymmetricKey{1, 2, 3},
		RelayProtocol: "irn",
		Expiry:        time.Unix(1_700_000_000, 0),
		Methods:       []string{rpc.MethodSessionPropose, rpc.MethodSessionAuthenticate},
	}
	got, err := pairing.ParseURI(u.String())
	require.NoError(t, err)
	assert.Equal(t, u.Topic, got.Topic)
	assert.Equal(t, u.SymKey, got.SymKey)
	assert.Equal(t, u.Methods, got.Methods)
	assert.True(t, u.Expiry.Equal(got.Expiry))
}

func TestParseURI_Rejects(t *testing.T) {
	for _, s := range []string{
		"http://x",
		"wc:abc@1?relay-protocol=irn",
		"wc:7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9@2?symKey=00",
		"wc:7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9@2?relay-protocol=irn&symKey=zz",
	} {
		_, err := pairing.ParseURI(s)
		assert.ErrorIs(t, err, pairing.ErrInvalidURI, s)
	}
}

func TestCreateAndPair(t *testing.T) {
	ctx := context.Background()
	hub := relay.NewHub()
	app, wallet := newNode(t, hub, "app"), newNode(t, hub, "wallet")

	created, err := app.pairings.Create(ctx, []string{rpc.MethodSessionAuthenticate})
	require.NoError(t, err)
	assert.False(t, created.Active)
	assert.True(t, created.SupportsMethod(rpc.MethodSessionAuthenticate))

	joined, err := wallet.pairings.Pair(ctx, created.URI)
	require.NoError(t, err)
	assert.Equal(t, created.Topic, joined.Topic)

	ka, _, _ := app.keys.Secret(ctx, created.Topic)
	kw, ok, err := wallet.keys.Secret(ctx, created.Topic)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ka, kw)

	again, err := wallet.pairings.Pair(ctx, created.URI)
	require.NoError(t, err)
	assert.Equal(t, joined.Topic, again.Topic)
}

func TestActivateMarkReceivedDelete(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, relay.NewHub(), "solo")
	p, err := n.pairings.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, n.pairings.MarkReceived(ctx, p.Topic))
	require.NoError(t, n.pairings.Activate(ctx, p.Topic, &domain.Metadata{Name: "wallet"}))

	got, ok, err := n.pairings.Get(ctx, p.Topic)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Active)
	assert.True(t, got.ReceivedRequest)
	require.NotNil(t, got.PeerMetadata)
	assert.Equal(t, "wallet", got.PeerMetadata.Name)
	assert.True(t, got.Expiry.After(p.Expiry))

	require.NoError(t, n.pairings.Delete(ctx, p.Topic))
	_, ok, _ = n.pairings.Get(ctx, p.Topic)
	assert.False(t, ok)
	_, ok, _ = n.keys.Secret(ctx, p.Topic)
	assert.False(t, ok)

	assert.ErrorIs(t, n.pairings.Activate(ctx, p.Topic, nil), pairing.ErrNotFound)
}

// slowStore holds every read for a while before returning it, so
// concurrent updates overlap.
type slowStore struct {
	*store.Map[domain.Pairing]
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, key string) (domain.Pairing, bool, error) {
	p, ok, err := s.Map.Get(ctx, key)
	time.Sleep(s.delay)
	return p, ok, err
}

func TestConcurrentUpdatesKeepBothChanges(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	ks := keys.New(kv, store.BucketKeys)
	tr := relay.NewInteractor(relay.NewHub().Client("solo", zerolog.Nop()), ks,
		relay.NewHistory(store.NewMap[relay.HistoryRecord](kv, store.BucketHistory)), zerolog.Nop())
	t.Cleanup(func() { _ = tr.Close() })
	svc := pairing.New(ks, tr, slowStore{Map: store.NewMap[domain.Pairing](kv, store.BucketPairings), delay: 20 * time.Millisecond}, zerolog.Nop())

	p, err := svc.Create(ctx, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Activate(ctx, p.Topic, &domain.Metadata{Name: "wallet"}))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.MarkReceived(ctx, p.Topic))
	}()
	wg.Wait()

	got, ok, err := svc.Get(ctx, p.Topic)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Active)
	assert.True(t, got.ReceivedRequest)
}
