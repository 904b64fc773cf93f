package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

var (
	// ErrNoTopicKey is returned when sending on a topic without a secret.
	ErrNoTopicKey = errors.New("no symmetric key for topic")
)

const inboundBuffer = 256

// Interactor implements domain.Transport over a Broker.
type Interactor struct {
	broker  Broker
	keys    domain.KeyAgreement
	history *History
	log     zerolog.Logger
	now     func() time.Time

	inbound chan rpc.Inbound
	closed  chan struct{}

	mu   sync.Mutex
	subs map[domain.Topic]Subscription
}

var _ domain.Transport = (*Interactor)(nil)

// NewInteractor returns an interactor publishing through broker.
func NewInteractor(broker Broker, keys domain.KeyAgreement, history *History, log zerolog.Logger) *Interactor {
	return &Interactor{
		broker:  broker,
		keys:    keys,
		history: history,
		log:     log.With().Str("component", "relay.interactor").Logger(),
		now:     time.Now,
		inbound: make(chan rpc.Inbound, inboundBuffer),
		closed:  make(chan struct{}),
		subs:    make(map[domain.Topic]Subscription),
	}
}

// Inbound delivers decrypted requests and correlated responses.
func (i *Interactor) Inbound() <-chan rpc.Inbound { return i.inbound }

// Connectivity subscribes to the broker's connection state.
func (i *Interactor) Connectivity() (<-chan bool, func()) { return i.broker.Status() }

// Subscribe starts receiving on topic. Subscribing twice is a no-op.
func (i *Interactor) Subscribe(ctx context.Context, topic domain.Topic) error {
	i.mu.Lock()
	_, ok := i.subs[topic]
	i.mu.Unlock()
	if ok {
		return nil
	}
	sub, err := i.broker.Subscribe(ctx, string(topic), func(m Message) { i.receive(topic, m) })
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, raced := i.subs[topic]; raced {
		return sub.Unsubscribe()
	}
	i.subs[topic] = sub
	return nil
}

// Unsubscribe stops receiving on topic.
func (i *Interactor) Unsubscribe(_ context.Context, topic domain.Topic) error {
	i.mu.Lock()
	sub, ok := i.subs[topic]
	delete(i.subs, topic)
	i.mu.Unlock()
	if !ok {
		return nil
	}
	return sub.Unsubscribe()
}

// Request publishes req on topic and records it so the response can be
// matched.
func (i *Interactor) Request(ctx context.Context, topic domain.Topic, req rpc.Request, route rpc.Route) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := i.history.RecordOutbound(ctx, topic, req); err != nil {
		return fmt.Errorf("record request %d: %w", req.ID, err)
	}
	if err := i.publish(ctx, topic, raw, route); err != nil {
		if ferr := i.history.Forget(ctx, req.ID); ferr != nil {
			i.log.Warn().Err(ferr).Uint64("id", req.ID).Msg("forget failed request")
		}
		return err
	}
	i.log.Debug().Str("topic", string(topic)).Str("method", req.Method).Uint64("id", req.ID).Msg("request sent")
	return nil
}

// RespondResult publishes a success response.
func (i *Interactor) RespondResult(ctx context.Context, topic domain.Topic, id uint64, result any, route rpc.Route) error {
	resp, err := rpc.NewResult(id, result)
	if err != nil {
		return err
	}
	return i.respond(ctx, topic, resp, route)
}

// RespondError publishes an error response carrying r.
func (i *Interactor) RespondError(ctx context.Context, topic domain.Topic, id uint64, r reason.Reason, route rpc.Route) error {
	return i.respond(ctx, topic, rpc.NewError(id, r.Code, r.Message), route)
}

func (i *Interactor) respond(ctx context.Context, topic domain.Topic, resp rpc.Response, route rpc.Route) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := i.publish(ctx, topic, raw, route); err != nil {
		return err
	}
	i.log.Debug().Str("topic", string(topic)).Uint64("id", resp.ID).Bool("error", resp.IsError()).Msg("response sent")
	return nil
}

func (i *Interactor) publish(ctx context.Context, topic domain.Topic, raw []byte, route rpc.Route) error {
	key, ok, err := i.keys.Secret(ctx, topic)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTopicKey, topic)
	}
	env, err := crypto.Seal(key, raw)
	crypto.Wipe(key[:])
	if err != nil {
		return err
	}
	return i.broker.Publish(ctx, Message{
		ID:          uuid.NewString(),
		Topic:       string(topic),
		Payload:     env,
		Tag:         route.Tag,
		TTL:         route.TTL,
		Prompt:      route.Prompt,
		PublishedAt: i.now(),
	})
}

// receive runs on the broker's delivery goroutine for topic.
func (i *Interactor) receive(topic domain.Topic, m Message) {
	ctx := context.Background()
	log := i.log.With().Str("topic", string(topic)).Int("tag", m.Tag).Logger()

	key, ok, err := i.keys.Secret(ctx, topic)
	if err != nil || !ok {
		log.Warn().Err(err).Msg("dropping message: no key for topic")
		return
	}
	raw, err := crypto.Open(key, m.Payload)
	crypto.Wipe(key[:])
	if err != nil {
		log.Warn().Err(err).Msg("dropping message: cannot open envelope")
		return
	}
	req, resp, err := rpc.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("dropping message: not json-rpc")
		return
	}

	in := rpc.Inbound{Topic: topic, Raw: raw, ReceivedAt: i.now()}
	if req != nil {
		first, err := i.history.FirstInbound(ctx, topic, *req)
		if err != nil {
			log.Error().Err(err).Msg("history lookup failed")
			return
		}
		if !first {
			log.Debug().Uint64("id", req.ID).Msg("dropping duplicate request")
			return
		}
		in.Kind, in.Method, in.Request = rpc.KindRequest, req.Method, *req
	} else {
		orig, ok, err := i.history.ResolveResponse(ctx, topic, resp.ID)
		if err != nil {
			log.Error().Err(err).Msg("history lookup failed")
			return
		}
		if !ok {
			log.Debug().Uint64("id", resp.ID).Msg("dropping unmatched or repeated response")
			return
		}
		in.Kind, in.Method, in.Request, in.Response = rpc.KindResult, orig.Method, orig, *resp
		if resp.IsError() {
			in.Kind = rpc.KindError
		}
	}

	select {
	case i.inbound <- in:
	case <-i.closed:
	}
}

// Close releases every subscription. The broker is owned by the caller.
func (i *Interactor) Close() error {
	i.mu.Lock()
	select {
	case <-i.closed:
		i.mu.Unlock()
		return nil
	default:
	}
	close(i.closed)
	subs := i.subs
	i.subs = make(map[domain.Topic]Subscription)
	i.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		errs = append(errs, sub.Unsubscribe())
	}
	return errors.Join(errs...)
}
