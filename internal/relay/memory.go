package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub is an in-process relay shared by Memory clients.
type Hub struct {
	mu        sync.Mutex
	mailboxes map[string][]Message
	subs      map[string]map[*memorySub]struct{}
	delivered map[string]map[string]bool // client -> message id
	now       func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		mailboxes: make(map[string][]Message),
		subs:      make(map[string]map[*memorySub]struct{}),
		delivered: make(map[string]map[string]bool),
		now:       time.Now,
	}
}

// Client returns a broker connected to the hub as clientID.
func (h *Hub) Client(clientID string, log zerolog.Logger) *Memory {
	return &Memory{
		hub:    h,
		id:     clientID,
		log:    log.With().Str("component", "relay.memory").Str("client", clientID).Logger(),
		status: newStatusFeed(true),
		subs:   make(map[*memorySub]struct{}),
	}
}

// Delivered returns how many message ids the hub remembers as delivered
// to clientID.
func (h *Hub) Delivered(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.delivered[clientID])
}

// Pending returns the number of unexpired messages held for topic.
func (h *Hub) Pending(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked(topic)
	return len(h.mailboxes[topic])
}

func (h *Hub) pruneLocked(topic string) {
	now := h.now()
	box := h.mailboxes[topic][:0]
	for _, m := range h.mailboxes[topic] {
		if !m.Expired(now) {
			box = append(box, m)
			continue
		}
		// An expired message can no longer be redelivered.
		for client, seen := range h.delivered {
			delete(seen, m.ID)
			if len(seen) == 0 {
				delete(h.delivered, client)
			}
		}
	}
	if len(box) == 0 {
		delete(h.mailboxes, topic)
		return
	}
	h.mailboxes[topic] = box
}

func (h *Hub) deliverLocked(s *memorySub, m Message) {
	if m.Sender == s.client {
		return
	}
	seen := h.delivered[s.client]
	if seen == nil {
		seen = make(map[string]bool)
		h.delivered[s.client] = seen
	}
	if seen[m.ID] {
		return
	}
	seen[m.ID] = true
	s.push(m)
}

func (h *Hub) publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked(m.Topic)
	h.mailboxes[m.Topic] = append(h.mailboxes[m.Topic], m)
	for s := range h.subs[m.Topic] {
		h.deliverLocked(s, m)
	}
}

func (h *Hub) subscribe(s *memorySub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s.topic] == nil {
		h.subs[s.topic] = make(map[*memorySub]struct{})
	}
	h.subs[s.topic][s] = struct{}{}
	h.pruneLocked(s.topic)
	for _, m := range h.mailboxes[s.topic] {
		h.deliverLocked(s, m)
	}
}

func (h *Hub) unsubscribe(s *memorySub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[s.topic], s)
}

// Memory is a Broker backed by a Hub.
type Memory struct {
	hub    *Hub
	id     string
	log    zerolog.Logger
	status *statusFeed

	mu     sync.Mutex
	subs   map[*memorySub]struct{}
	closed bool
}

var _ Broker = (*Memory)(nil)

func (c *Memory) ClientID() string { return c.id }

// SetConnected simulates the connection going up or down.
func (c *Memory) SetConnected(v bool) { c.status.set(v) }

func (c *Memory) Publish(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !c.status.get() {
		return ErrNotConnected
	}
	m.Sender = c.id
	if m.PublishedAt.IsZero() {
		m.PublishedAt = c.hub.now()
	}
	c.hub.publish(m)
	c.log.Debug().Str("topic", m.Topic).Int("tag", m.Tag).Msg("published")
	return nil
}

func (c *Memory) Subscribe(ctx context.Context, topic string, fn func(Message)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	s := &memorySub{
		hub:    c.hub,
		owner:  c,
		client: c.id,
		topic:  topic,
		fn:     fn,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	go s.run()
	c.hub.subscribe(s)
	return s, nil
}

func (c *Memory) Status() (<-chan bool, func()) { return c.status.subscribe() }

func (c *Memory) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := make([]*memorySub, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", s.topic, err)
		}
	}
	c.status.set(false)
	return nil
}

type memorySub struct {
	hub    *Hub
	owner  *Memory
	client string
	topic  string
	fn     func(Message)

	mu      sync.Mutex
	pending []Message
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *memorySub) push(m Message) {
	s.mu.Lock()
	s.pending = append(s.pending, m)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySub) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			m := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(m)
		}
	}
}

func (s *memorySub) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		s.owner.mu.Lock()
		delete(s.owner.subs, s)
		s.owner.mu.Unlock()
		close(s.done)
	})
	return nil
}
