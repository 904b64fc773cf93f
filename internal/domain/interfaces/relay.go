package interfaces

import (
	"context"

	"walletlink/internal/domain/types"
	"walletlink/internal/protocol/reason"
	"walletlink/internal/protocol/rpc"
)

// Transport sends and receives encrypted JSON-RPC messages on topics.
// Request and Respond* return once the relay acknowledged the publish.
type Transport interface {
	Subscribe(ctx context.Context, topic types.Topic) error
	Unsubscribe(ctx context.Context, topic types.Topic) error

	Request(ctx context.Context, topic types.Topic, req rpc.Request, route rpc.Route) error
	RespondResult(ctx context.Context, topic types.Topic, id uint64, result any, route rpc.Route) error
	RespondError(ctx context.Context, topic types.Topic, id uint64, r reason.Reason, route rpc.Route) error

	// Inbound delivers decrypted requests and correlated responses.
	Inbound() <-chan rpc.Inbound

	// Connectivity subscribes to connection state. The first value is the
	// current state. The returned func releases the subscription.
	Connectivity() (<-chan bool, func())
}
