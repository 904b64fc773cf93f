package sign

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

const (
	DefaultSessionTTL  = 7 * 24 * time.Hour
	DefaultProposalTTL = 5 * time.Minute

	workerQueue = 64
)

// Config holds the engine's own identity and negotiation policy.
type Config struct {
	// Self is the metadata sent to peers in proposals and settlements.
	Self domain.Metadata
	// SessionTTL is the lifetime of a newly settled session.
	SessionTTL time.Duration
	// ProposalTTL bounds how long a proposal sent by Propose stays valid.
	ProposalTTL time.Duration
	// Namespaces selects how strictly approved namespaces must match the
	// proposal's required namespaces.
	Namespaces namespace.Mode
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.ProposalTTL <= 0 {
		c.ProposalTTL = DefaultProposalTTL
	}
	return c
}

// Deps are the collaborators the engine is built from.
type Deps struct {
	Transport      domain.Transport
	Keys           domain.KeyAgreement
	Verifier       domain.Verifier
	Pairings       domain.Pairings
	Sessions       domain.SessionStore
	Proposals      domain.ProposalStore
	ProposalLinks  domain.ProposalLinkStore
	VerifyContexts domain.VerifyContextStore
	Log            zerolog.Logger
}

// Engine negotiates sessions over a Transport.
type Engine struct {
	transport      domain.Transport
	keys           domain.KeyAgreement
	verifier       domain.Verifier
	pairings       domain.Pairings
	sessions       domain.SessionStore
	proposals      domain.ProposalStore
	proposalLinks  domain.ProposalLinkStore
	verifyContexts domain.VerifyContextStore

	cfg    Config
	log    zerolog.Logger
	events *notifier
	now    func() time.Time

	// settling holds topics whose approval has sent a settlement but not
	// yet persisted the session. Settle responses wait for them.
	// claims holds proposer keys with an Approve or Reject in progress.
	settlingMu sync.Mutex
	settling   map[domain.Topic]chan struct{}
	claims     map[string]struct{}

	// bg carries fire-and-forget work started by handlers and API calls.
	bg       sync.WaitGroup
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// New returns an engine. Run must be called to process inbound traffic.
func New(d Deps, cfg Config) *Engine {
	log := d.Log.With().Str("component", "sign.engine").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		transport:      d.Transport,
		keys:           d.Keys,
		verifier:       d.Verifier,
		pairings:       d.Pairings,
		sessions:       d.Sessions,
		proposals:      d.Proposals,
		proposalLinks:  d.ProposalLinks,
		verifyContexts: d.VerifyContexts,
		cfg:            cfg.withDefaults(),
		log:            log,
		events:         newNotifier(log),
		now:            time.Now,
		settling:       make(map[domain.Topic]chan struct{}),
		claims:         make(map[string]struct{}),
		bgCtx:          ctx,
		bgCancel:       cancel,
	}
}

// Subscribe registers for events of the given kinds. Events are queued
// per subscriber and never dropped. The returned func cancels the
// subscription; the channel is not closed.
func (e *Engine) Subscribe(kinds ...EventKind) (<-chan Event, func()) {
	return e.events.subscribe(kinds)
}

// Close stops background work started by the engine, waits for it and
// ends all subscriptions.
func (e *Engine) Close() error {
	e.bgCancel()
	e.bg.Wait()
	e.events.closeAll()
	return nil
}

// background runs fn detached from the caller's context.
func (e *Engine) background(fn func(ctx context.Context)) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		fn(e.bgCtx)
	}()
}

func (e *Engine) notify(ev Event) { e.events.publish(ev) }

// handler processes one inbound message. Request handlers answer on the
// relay themselves; response handlers only mutate local state.
type handler func(ctx context.Context, in rpc.Inbound)

type route struct {
	method string
	kind   direction
}

type direction int

const (
	inboundRequest direction = iota
	inboundResponse
)

func directionOf(k rpc.Kind) direction {
	if k == rpc.KindRequest {
		return inboundRequest
	}
	return inboundResponse
}

// handlers is the dispatch table. Methods registered in rpc but absent
// here are answered with MethodUnsupported.
func (e *Engine) handlers() map[route]handler {
	return map[route]handler{
		{rpc.MethodSessionPropose, inboundRequest}:       e.onProposeRequest,
		{rpc.MethodSessionPropose, inboundResponse}:      e.onProposeResponse,
		{rpc.MethodSessionSettle, inboundRequest}:        e.onSettleRequest,
		{rpc.MethodSessionSettle, inboundResponse}:       e.onSettleResponse,
		{rpc.MethodSessionAuthenticate, inboundRequest}:  e.onAuthenticateRequest,
		{rpc.MethodPairingPing, inboundRequest}:          e.onPing,
		{rpc.MethodSessionPing, inboundRequest}:          e.onPing,
		{rpc.MethodSessionAuthenticate, inboundResponse}: e.onIgnoredResponse,
		{rpc.MethodPairingPing, inboundResponse}:         e.onIgnoredResponse,
		{rpc.MethodSessionPing, inboundResponse}:         e.onIgnoredResponse,
	}
}

// Run reads the transport's inbound stream until ctx is cancelled or the
// stream closes. Each route gets a worker goroutine of its own.
func (e *Engine) Run(ctx context.Context) error {
	table := e.handlers()
	queues := make(map[route]chan rpc.Inbound, len(table))

	var wg sync.WaitGroup
	for r, h := range table {
		q := make(chan rpc.Inbound, workerQueue)
		queues[r] = q
		wg.Add(1)
		go func(h handler, q <-chan rpc.Inbound) {
			defer wg.Done()
			for in := range q {
				h(ctx, in)
			}
		}(h, q)
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	inbound := e.transport.Inbound()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case in, ok := <-inbound:
			if !ok {
				return nil
			}
			e.dispatch(ctx, queues, in)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, queues map[route]chan rpc.Inbound, in rpc.Inbound) {
	log := e.log.With().Str("topic", string(in.Topic)).Str("method", in.Method).Str("kind", in.Kind.String()).Logger()

	q, ok := queues[route{in.Method, directionOf(in.Kind)}]
	if ok {
		select {
		case q <- in:
		case <-ctx.Done():
		}
		return
	}

	m, registered := rpc.Lookup(in.Method)
	if !registered {
		log.Warn().Msg("dropping message for unknown method")
		return
	}
	if in.Kind != rpc.KindRequest {
		log.Debug().Msg("dropping response for unhandled method")
		return
	}
	log.Info().Uint64("id", in.Request.ID).Msg("unsupported method")
	e.respondError(ctx, in.Topic, in.Request.ID, reason.MethodUnsupported.Reason(), m.Reject)
}

// respondError answers a request and logs rather than returns a failure;
// callers are inbound handlers with nobody to report to.
func (e *Engine) respondError(ctx context.Context, topic domain.Topic, id uint64, r reason.Reason, rt rpc.Route) {
	if err := e.transport.RespondError(ctx, topic, id, r, rt); err != nil {
		e.log.Warn().Err(err).Str("topic", string(topic)).Uint64("id", id).Int("code", r.Code).Msg("error response failed")
	}
}

func (e *Engine) onPing(ctx context.Context, in rpc.Inbound) {
	m := rpc.MustLookup(in.Method)
	if err := e.transport.RespondResult(ctx, in.Topic, in.Request.ID, true, m.Approve); err != nil {
		e.log.Warn().Err(err).Str("topic", string(in.Topic)).Msg("ping response failed")
	}
}

func (e *Engine) onIgnoredResponse(_ context.Context, in rpc.Inbound) {
	e.log.Debug().Str("topic", string(in.Topic)).Str("method", in.Method).Uint64("id", in.Response.ID).Msg("response received")
}

// beginSettle marks topic as settling until the returned func is called.
func (e *Engine) beginSettle(topic domain.Topic) func() {
	done := make(chan struct{})
	e.settlingMu.Lock()
	e.settling[topic] = done
	e.settlingMu.Unlock()
	return func() {
		e.settlingMu.Lock()
		delete(e.settling, topic)
		e.settlingMu.Unlock()
		close(done)
	}
}

// awaitSettle blocks while an approval of topic is still persisting.
func (e *Engine) awaitSettle(ctx context.Context, topic domain.Topic) {
	e.settlingMu.Lock()
	done, ok := e.settling[topic]
	e.settlingMu.Unlock()
	if !ok {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// waitConnected takes exactly one value from the connectivity stream and
// always releases the subscription.
func (e *Engine) waitConnected(ctx context.Context) error {
	status, release := e.transport.Connectivity()
	defer release()
	select {
	case up := <-status:
		if !up {
			return ErrNetworkNotConnected
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
