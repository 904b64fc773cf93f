package types

// ProposalNamespace is what a proposer asks for under one namespace key.
type ProposalNamespace struct {
	Chains  []string `json:"chains,omitempty" cbor:"chains,omitempty"`
	Methods []string `json:"methods" cbor:"methods"`
	Events  []string `json:"events" cbor:"events"`
}

// Namespace is what a responder grants under one namespace key.
type Namespace struct {
	Chains   []string `json:"chains,omitempty" cbor:"chains,omitempty"`
	Accounts []string `json:"accounts" cbor:"accounts"`
	Methods  []string `json:"methods" cbor:"methods"`
	Events   []string `json:"events" cbor:"events"`
}
