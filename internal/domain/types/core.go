package types

// Topic names an encrypted channel on the relay. Pairing and session
// topics are both 64 hex characters.
type Topic string

// String returns the string form of the topic.
func (t Topic) String() string { return string(t) }

// Metadata describes an application or wallet to its peer.
type Metadata struct {
	Name        string   `json:"name" cbor:"name"`
	Description string   `json:"description" cbor:"description"`
	URL         string   `json:"url" cbor:"url"`
	Icons       []string `json:"icons" cbor:"icons"`
	Redirect    string   `json:"redirect,omitempty" cbor:"redirect,omitempty"`
}

// Participant is one side of a proposal or session.
type Participant struct {
	PublicKey string   `json:"publicKey" cbor:"publicKey"`
	Metadata  Metadata `json:"metadata" cbor:"metadata"`
}

// RelayProtocolOptions selects the relay protocol a topic is served over.
type RelayProtocolOptions struct {
	Protocol string `json:"protocol" cbor:"protocol"`
	Data     string `json:"data,omitempty" cbor:"data,omitempty"`
}

// DefaultRelayProtocol is the only relay protocol this node speaks.
const DefaultRelayProtocol = "irn"
