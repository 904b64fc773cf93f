package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Headers carried on every relay message.
const (
	headerTag       = "Relay-Tag"
	headerTTL       = "Relay-Ttl"
	headerPrompt    = "Relay-Prompt"
	headerSender    = "Relay-Client"
	headerPublished = "Relay-Published"
)

const subjectPrefix = "relay."

// NATSOptions configures the NATS broker.
type NATSOptions struct {
	URL             string
	ClientID        string
	Name            string
	Stream          string
	MaxAge          time.Duration
	ReconnectWait   time.Duration
	MaxReconnects   int
	CredentialsFile string
}

// NATS is a Broker over a JetStream stream. Topics map to subjects
// "relay.<topic>"; the stream is the mailbox and each subscription is a
// durable consumer named after the client and topic, so messages published
// while a client was away are delivered when it resubscribes.
type NATS struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	opts   NATSOptions
	log    zerolog.Logger
	status *statusFeed

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

var _ Broker = (*NATS)(nil)

// NewNATS connects to the server and makes sure the relay stream exists.
func NewNATS(ctx context.Context, opts NATSOptions, log zerolog.Logger) (*NATS, error) {
	if opts.ClientID == "" {
		return nil, errors.New("nats: client id required")
	}
	if opts.Stream == "" {
		opts.Stream = "RELAY"
	}
	if opts.Name == "" {
		opts.Name = "walletlink-" + opts.ClientID
	}
	b := &NATS{
		opts:   opts,
		log:    log.With().Str("component", "relay.nats").Logger(),
		status: newStatusFeed(false),
		subs:   make(map[string]*nats.Subscription),
	}

	natsOpts := []nats.Option{
		nats.Name(opts.Name),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			b.log.Warn().Err(err).Msg("NATS disconnected")
			b.status.set(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			b.status.set(true)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			b.log.Info().Msg("NATS connection closed")
			b.status.set(false)
		}),
	}
	if opts.CredentialsFile != "" {
		if _, err := os.Stat(opts.CredentialsFile); err != nil {
			return nil, fmt.Errorf("nats credentials: %w", err)
		}
		natsOpts = append(natsOpts, nats.UserCredentials(opts.CredentialsFile))
	}

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	b.conn, b.js = conn, js

	if err := b.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	b.status.set(conn.IsConnected())
	return b, nil
}

func (b *NATS) ensureStream(ctx context.Context) error {
	_, err := b.js.StreamInfo(b.opts.Stream, nats.Context(ctx))
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", b.opts.Stream, err)
	}
	_, err = b.js.AddStream(&nats.StreamConfig{
		Name:       b.opts.Stream,
		Subjects:   []string{subjectPrefix + ">"},
		MaxAge:     b.opts.MaxAge,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("add stream %s: %w", b.opts.Stream, err)
	}
	b.log.Info().Str("stream", b.opts.Stream).Msg("created relay stream")
	return nil
}

func (b *NATS) ClientID() string { return b.opts.ClientID }

func (b *NATS) Publish(ctx context.Context, m Message) error {
	if !b.conn.IsConnected() {
		return ErrNotConnected
	}
	if m.PublishedAt.IsZero() {
		m.PublishedAt = time.Now()
	}
	msg := nats.NewMsg(subjectPrefix + m.Topic)
	msg.Data = []byte(m.Payload)
	msg.Header.Set(headerTag, strconv.Itoa(m.Tag))
	msg.Header.Set(headerTTL, strconv.FormatInt(int64(m.TTL/time.Second), 10))
	msg.Header.Set(headerPrompt, strconv.FormatBool(m.Prompt))
	msg.Header.Set(headerSender, b.opts.ClientID)
	msg.Header.Set(headerPublished, strconv.FormatInt(m.PublishedAt.UnixMilli(), 10))

	if _, err := b.js.PublishMsg(msg, nats.Context(ctx), nats.MsgId(m.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", m.Topic, err)
	}
	return nil
}

func (b *NATS) Subscribe(ctx context.Context, topic string, fn func(Message)) (Subscription, error) {
	durable := b.opts.ClientID + "-" + topic
	sub, err := b.js.Subscribe(subjectPrefix+topic, func(msg *nats.Msg) {
		m := fromNATS(topic, msg)
		if m.Sender == b.opts.ClientID || m.Expired(time.Now()) {
			_ = msg.Ack()
			return
		}
		fn(m)
		if err := msg.Ack(); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Msg("ack failed")
		}
	}, nats.Durable(durable), nats.DeliverAll(), nats.ManualAck(), nats.AckExplicit(), nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.subs[topic] = sub
	b.mu.Unlock()
	b.log.Debug().Str("topic", topic).Msg("subscribed")
	return &natsSub{broker: b, topic: topic, sub: sub}, nil
}

func fromNATS(topic string, msg *nats.Msg) Message {
	m := Message{
		Topic:   topic,
		Payload: string(msg.Data),
		Sender:  msg.Header.Get(headerSender),
		ID:      msg.Header.Get(nats.MsgIdHdr),
	}
	m.Tag, _ = strconv.Atoi(msg.Header.Get(headerTag))
	if ttl, err := strconv.ParseInt(msg.Header.Get(headerTTL), 10, 64); err == nil {
		m.TTL = time.Duration(ttl) * time.Second
	}
	m.Prompt, _ = strconv.ParseBool(msg.Header.Get(headerPrompt))
	if ms, err := strconv.ParseInt(msg.Header.Get(headerPublished), 10, 64); err == nil {
		m.PublishedAt = time.UnixMilli(ms)
	}
	return m
}

func (b *NATS) Status() (<-chan bool, func()) { return b.status.subscribe() }

func (b *NATS) Close() error {
	b.mu.Lock()
	b.subs = make(map[string]*nats.Subscription)
	b.mu.Unlock()

	// Closing without unsubscribing leaves the durable consumers on the
	// server, so messages for this client wait there until it reconnects.
	b.conn.Close()
	return nil
}

type natsSub struct {
	broker *NATS
	topic  string
	sub    *nats.Subscription
}

// Unsubscribe removes the durable consumer for the topic.
func (s *natsSub) Unsubscribe() error {
	s.broker.mu.Lock()
	delete(s.broker.subs, s.topic)
	s.broker.mu.Unlock()
	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("unsubscribe %s: %w", s.topic, err)
	}
	return nil
}
