package relay

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned by Publish while the broker is offline.
	ErrNotConnected = errors.New("relay not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("relay closed")
)

// Message is one envelope on the relay.
type Message struct {
	ID          string
	Topic       string
	Payload     string
	Tag         int
	TTL         time.Duration
	Prompt      bool
	Sender      string
	PublishedAt time.Time
}

// Expired reports whether the message outlived its TTL at now.
func (m Message) Expired(now time.Time) bool {
	return m.TTL > 0 && now.After(m.PublishedAt.Add(m.TTL))
}

// Subscription is a live topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// Broker is a relay client. Handlers passed to Subscribe run sequentially
// per subscription.
type Broker interface {
	ClientID() string
	Publish(ctx context.Context, m Message) error
	Subscribe(ctx context.Context, topic string, fn func(Message)) (Subscription, error)
	// Status streams connection state. The first value is the current state.
	Status() (<-chan bool, func())
	Close() error
}
