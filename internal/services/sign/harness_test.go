package sign_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
	"walletlink/internal/services/keys"
	"walletlink/internal/services/pairing"
	"walletlink/internal/services/sign"
	"walletlink/internal/services/verify"
	"walletlink/internal/store"
)

const (
	accountA = "eip155:1:0xab16a96d359ec26a11e2c2b3d8f8b8942d5bfcdb"
	accountB = "eip155:1:0x5a4fa8ce3e3d9f6c7d0cbbb2ef2d1f5c0f30bb41"
)

// call is one operation observed by fakeTransport.
type call struct {
	Op     string
	Topic  domain.Topic
	ID     uint64
	Method string
	Route  rpc.Route
	Reason reason.Reason
	Result any
}

type fakeTransport struct {
	mu           sync.Mutex
	calls        []call
	requestErr   error
	respondErr   error
	connected    bool
	silent       bool
	connectivity int
	open         int
	inbound      chan rpc.Inbound
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, inbound: make(chan rpc.Inbound, 16)}
}

func (f *fakeTransport) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) Subscribe(_ context.Context, topic domain.Topic) error {
	f.record(call{Op: "subscribe", Topic: topic})
	return nil
}

func (f *fakeTransport) Unsubscribe(_ context.Context, topic domain.Topic) error {
	f.record(call{Op: "unsubscribe", Topic: topic})
	return nil
}

func (f *fakeTransport) Request(_ context.Context, topic domain.Topic, req rpc.Request, route rpc.Route) error {
	f.mu.Lock()
	err := f.requestErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.record(call{Op: "request", Topic: topic, ID: req.ID, Method: req.Method, Route: route})
	return nil
}

func (f *fakeTransport) RespondResult(_ context.Context, topic domain.Topic, id uint64, result any, route rpc.Route) error {
	f.mu.Lock()
	err := f.respondErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.record(call{Op: "result", Topic: topic, ID: id, Route: route, Result: result})
	return nil
}

func (f *fakeTransport) RespondError(_ context.Context, topic domain.Topic, id uint64, r reason.Reason, route rpc.Route) error {
	f.mu.Lock()
	err := f.respondErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.record(call{Op: "error", Topic: topic, ID: id, Route: route, Reason: r})
	return nil
}

func (f *fakeTransport) Inbound() <-chan rpc.Inbound { return f.inbound }

func (f *fakeTransport) Connectivity() (<-chan bool, func()) {
	f.mu.Lock()
	f.connectivity++
	f.open++
	ch := make(chan bool, 1)
	if !f.silent {
		ch <- f.connected
	}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			f.open--
			f.mu.Unlock()
		})
	}
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = v
}

func (f *fakeTransport) openStatusSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls) + f.connectivity
}

// stubVerifier answers every assessment with err, or att when err is nil.
type stubVerifier struct {
	mu           sync.Mutex
	err          error
	att          domain.Attestation
	fingerprints []string
}

func (v *stubVerifier) Assess(_ context.Context, fp string) (domain.Attestation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fingerprints = append(v.fingerprints, fp)
	if v.err != nil {
		return domain.Attestation{}, v.err
	}
	return v.att, nil
}

func (v *stubVerifier) BuildContext(id string, a domain.Attestation, claimed string) domain.VerifyContext {
	return verify.New(verify.Options{}, zerolog.Nop()).BuildContext(id, a, claimed)
}

func (v *stubVerifier) seen() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.fingerprints...)
}

// unit is an engine wired to a fakeTransport and in-memory stores.
type unit struct {
	tr             *fakeTransport
	keys           *keys.Service
	pairings       *pairing.Service
	proposals      *store.Map[domain.Proposal]
	links          *store.Map[domain.Proposal]
	sessions       *store.Map[domain.Session]
	verifyContexts *store.Map[domain.VerifyContext]
	verifier       *stubVerifier
	engine         *sign.Engine
}

func newUnit(t *testing.T) *unit { return newUnitWith(t, nil) }

// newUnitWith lets a test swap engine dependencies before the engine starts.
func newUnitWith(t *testing.T, tweak func(*sign.Deps)) *unit {
	t.Helper()
	kv := store.NewMemory()
	u := &unit{
		tr:             newFakeTransport(),
		keys:           keys.New(kv, store.BucketKeys),
		proposals:      store.NewMap[domain.Proposal](kv, store.BucketProposals),
		links:          store.NewMap[domain.Proposal](kv, store.BucketProposalLinks),
		sessions:       store.NewMap[domain.Session](kv, store.BucketSessions),
		verifyContexts: store.NewMap[domain.VerifyContext](kv, store.BucketVerify),
		verifier:       &stubVerifier{err: verify.ErrDisabled},
	}
	u.pairings = pairing.New(u.keys, u.tr, store.NewMap[domain.Pairing](kv, store.BucketPairings), zerolog.Nop())
	deps := sign.Deps{
		Transport:      u.tr,
		Keys:           u.keys,
		Verifier:       u.verifier,
		Pairings:       u.pairings,
		Sessions:       u.sessions,
		Proposals:      u.proposals,
		ProposalLinks:  u.links,
		VerifyContexts: u.verifyContexts,
		Log:            zerolog.Nop(),
	}
	if tweak != nil {
		tweak(&deps)
	}
	u.engine = sign.New(deps, sign.Config{Self: domain.Metadata{Name: "wallet", URL: "https://wallet.example"}})
	run(t, u.engine)
	return u
}

func run(t *testing.T, e *sign.Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = e.Close()
	})
}

func (u *unit) push(in rpc.Inbound) { u.tr.inbound <- in }

func inboundRequest(t *testing.T, topic domain.Topic, method string, params any) rpc.Inbound {
	t.Helper()
	req, err := rpc.NewRequest(method, params)
	require.NoError(t, err)
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return rpc.Inbound{Topic: topic, Kind: rpc.KindRequest, Method: method, Request: req, Raw: raw, ReceivedAt: time.Now()}
}

// seedProposal stores a proposal from a fresh proposer key on the wallet
// side and returns it with the proposer's key service.
func (u *unit) seedProposal(t *testing.T, pairingTopic domain.Topic, expiry time.Time) (domain.Proposal, *keys.Service, domain.PublicKey) {
	t.Helper()
	ctx := context.Background()
	proposer := keys.New(store.NewMemory(), store.BucketKeys)
	pub, err := proposer.CreateKeyPair(ctx)
	require.NoError(t, err)
	p := domain.Proposal{
		RequestID:          rpc.NewID(),
		PairingTopic:       pairingTopic,
		ProposerPublicKey:  pub.Hex(),
		Proposer:           domain.Metadata{Name: "dapp", URL: "https://dapp.example"},
		RequiredNamespaces: requiredEIP155(),
		Relays:             []domain.RelayProtocolOptions{{Protocol: domain.DefaultRelayProtocol}},
		Expiry:             expiry,
	}
	require.NoError(t, u.proposals.Set(ctx, pub.Hex(), p))
	return p, proposer, pub
}

func requiredEIP155() map[string]domain.ProposalNamespace {
	return map[string]domain.ProposalNamespace{
		"eip155": {Chains: []string{"eip155:1"}, Methods: []string{"personal_sign"}, Events: []string{"chainChanged"}},
	}
}

func grantEIP155(accounts ...string) map[string]domain.Namespace {
	return map[string]domain.Namespace{
		"eip155": {Accounts: accounts, Methods: []string{"personal_sign", "eth_sendTransaction"}, Events: []string{"chainChanged"}},
	}
}

func waitFor[E sign.Event](t *testing.T, ch <-chan sign.Event) E {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if e, ok := ev.(E); ok {
				return e
			}
		case <-deadline:
			var zero E
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}
