package types

import "time"

// Proposal is a pending session proposal, keyed by the proposer's public key.
type Proposal struct {
	RequestID          uint64                       `cbor:"requestId"`
	PairingTopic       Topic                        `cbor:"pairingTopic"`
	ProposerPublicKey  string                       `cbor:"proposerPublicKey"`
	Proposer           Metadata                     `cbor:"proposer"`
	RequiredNamespaces map[string]ProposalNamespace `cbor:"requiredNamespaces"`
	OptionalNamespaces map[string]ProposalNamespace `cbor:"optionalNamespaces,omitempty"`
	Relays             []RelayProtocolOptions       `cbor:"relays"`
	SessionProperties  map[string]string            `cbor:"sessionProperties,omitempty"`
	// Expiry is zero when the proposer set no deadline.
	Expiry time.Time `cbor:"expiry"`
}

// Expired reports whether the proposal deadline has passed at now.
func (p Proposal) Expired(now time.Time) bool {
	return !p.Expiry.IsZero() && !now.Before(p.Expiry)
}

// RelayProtocol returns the first relay protocol the proposer offered.
func (p Proposal) RelayProtocol() (RelayProtocolOptions, bool) {
	if len(p.Relays) == 0 {
		return RelayProtocolOptions{}, false
	}
	return p.Relays[0], true
}
