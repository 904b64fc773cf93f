package types

import "time"

// Session is a settled (or settling) session between two peers.
type Session struct {
	Topic              Topic                        `cbor:"topic"`
	PairingTopic       Topic                        `cbor:"pairingTopic"`
	Relay              RelayProtocolOptions         `cbor:"relay"`
	CreatedAt          time.Time                    `cbor:"createdAt"`
	Expiry             time.Time                    `cbor:"expiry"`
	Self               Participant                  `cbor:"self"`
	Peer               Participant                  `cbor:"peer"`
	Controller         string                       `cbor:"controller"`
	Namespaces         map[string]Namespace         `cbor:"namespaces"`
	RequiredNamespaces map[string]ProposalNamespace `cbor:"requiredNamespaces"`
	OptionalNamespaces map[string]ProposalNamespace `cbor:"optionalNamespaces,omitempty"`
	SessionProperties  map[string]string            `cbor:"sessionProperties,omitempty"`
	// Acknowledged is false on the side that sent the settle request until
	// the peer confirms it.
	Acknowledged bool `cbor:"acknowledged"`
}

// IsController reports whether this side controls the session.
func (s Session) IsController() bool { return s.Controller == s.Self.PublicKey }
