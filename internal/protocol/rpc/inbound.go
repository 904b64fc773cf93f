package rpc

import (
	"time"

	"walletlink/internal/domain/types"
)

// Kind classifies an inbound message.
type Kind int

const (
	KindRequest Kind = iota
	KindResult
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Inbound is one decrypted message received on a topic. For responses,
// Request is the outbound request it answers and Method is that request's
// method, so handlers can be routed by method for both directions.
type Inbound struct {
	Topic      types.Topic
	Kind       Kind
	Method     string
	Request    Request
	Response   Response
	Raw        []byte
	ReceivedAt time.Time
}
