package types

import (
	"slices"
	"time"
)

// Pairing is the long-lived channel on which proposals and authentication
// requests arrive.
type Pairing struct {
	Topic           Topic                `cbor:"topic"`
	Expiry          time.Time            `cbor:"expiry"`
	Relay           RelayProtocolOptions `cbor:"relay"`
	Active          bool                 `cbor:"active"`
	ReceivedRequest bool                 `cbor:"receivedRequest"`
	Methods         []string             `cbor:"methods,omitempty"`
	PeerMetadata    *Metadata            `cbor:"peerMetadata,omitempty"`
	URI             string               `cbor:"uri"`
}

// SupportsMethod reports whether the pairing advertised method.
func (p Pairing) SupportsMethod(method string) bool {
	return slices.Contains(p.Methods, method)
}
