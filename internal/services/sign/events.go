package sign

import (
	"sync"

	"github.com/rs/zerolog"

	"walletlink/internal/domain"
	"walletlink/internal/protocol/reason"
)

// EventKind selects a class of notifications.
type EventKind int

const (
	KindSessionProposal EventKind = iota + 1
	KindSessionSettled
	KindSessionApproved
	KindSessionSettleResponse
	KindSessionRejected
	KindSessionAuthenticate
	KindProposalAbandoned
)

// Event is a notification for the application.
type Event interface {
	Kind() EventKind
}

// SessionProposalEvent: a proposal arrived and awaits Approve or Reject.
type SessionProposalEvent struct {
	Proposal domain.Proposal
	Verify   domain.VerifyContext
}

// SessionSettledEvent: this side approved and sent the settlement; the
// session is stored unacknowledged.
type SessionSettledEvent struct {
	Session domain.Session
}

// SessionApprovedEvent: the peer settled a session this side proposed.
type SessionApprovedEvent struct {
	Session domain.Session
}

// SessionSettleResponseEvent: the peer answered our settlement. Err is nil
// on success, and Session is then the acknowledged session.
type SessionSettleResponseEvent struct {
	Topic   domain.Topic
	Session domain.Session
	Err     *reason.Reason
}

// SessionRejectedEvent: the peer rejected our proposal.
type SessionRejectedEvent struct {
	PairingTopic domain.Topic
	Reason       reason.Reason
}

// SessionAuthenticateEvent: an authentication request arrived.
type SessionAuthenticateEvent struct {
	Request domain.AuthenticationRequest
	Verify  domain.VerifyContext
}

// ProposalAbandonedEvent: an approval of our proposal arrived but could
// not be processed, so the session will never settle on this side.
type ProposalAbandonedEvent struct {
	PairingTopic domain.Topic
	RequestID    uint64
	Err          error
}

func (SessionProposalEvent) Kind() EventKind       { return KindSessionProposal }
func (SessionSettledEvent) Kind() EventKind        { return KindSessionSettled }
func (SessionApprovedEvent) Kind() EventKind       { return KindSessionApproved }
func (SessionSettleResponseEvent) Kind() EventKind { return KindSessionSettleResponse }
func (SessionRejectedEvent) Kind() EventKind       { return KindSessionRejected }
func (SessionAuthenticateEvent) Kind() EventKind   { return KindSessionAuthenticate }
func (ProposalAbandonedEvent) Kind() EventKind     { return KindProposalAbandoned }

const subscriberBuffer = 32

// subscriber queues events without bound and feeds them to out in order.
// A slow reader delays only its own deliveries.
type subscriber struct {
	out   chan Event
	kinds map[EventKind]bool

	mu    sync.Mutex
	queue []Event
	wake  chan struct{}
	done  chan struct{}
	stop  sync.Once
}

func newSubscriber(kinds []EventKind) *subscriber {
	s := &subscriber{
		out:   make(chan Event, subscriberBuffer),
		kinds: make(map[EventKind]bool, len(kinds)),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, k := range kinds {
		s.kinds[k] = true
	}
	go s.run()
	return s
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() { s.stop.Do(func() { close(s.done) }) }

// notifier fans events out to subscribers. Every matching subscriber gets
// every event; publish never blocks on a reader.
type notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]*subscriber
	log  zerolog.Logger
}

func newNotifier(log zerolog.Logger) *notifier {
	return &notifier{subs: make(map[int]*subscriber), log: log}
}

func (n *notifier) subscribe(kinds []EventKind) (<-chan Event, func()) {
	s := newSubscriber(kinds)
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = s
	n.mu.Unlock()

	return s.out, func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
		s.close()
	}
}

func (n *notifier) count(kind EventKind) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c := 0
	for _, s := range n.subs {
		if s.kinds[kind] {
			c++
		}
	}
	return c
}

func (n *notifier) publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, s := range n.subs {
		if s.kinds[ev.Kind()] {
			s.push(ev)
		}
	}
}

// closeAll ends every subscription.
func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, s := range n.subs {
		s.close()
		delete(n.subs, id)
	}
}
