package rpc

import "walletlink/internal/domain/types"

// ProposeParams are the params of wc_sessionPropose.
type ProposeParams struct {
	RequiredNamespaces map[string]types.ProposalNamespace `json:"requiredNamespaces"`
	OptionalNamespaces map[string]types.ProposalNamespace `json:"optionalNamespaces,omitempty"`
	Relays             []types.RelayProtocolOptions       `json:"relays"`
	Proposer           types.Participant                  `json:"proposer"`
	SessionProperties  map[string]string                  `json:"sessionProperties,omitempty"`
	// ExpiryTimestamp is in unix seconds; zero means no deadline.
	ExpiryTimestamp int64 `json:"expiryTimestamp,omitempty"`
}

// ApproveResult is the result of an approved wc_sessionPropose.
type ApproveResult struct {
	Relay              types.RelayProtocolOptions `json:"relay"`
	ResponderPublicKey string                     `json:"responderPublicKey"`
}

// SettleParams are the params of wc_sessionSettle.
type SettleParams struct {
	Relay             types.RelayProtocolOptions `json:"relay"`
	Controller        types.Participant          `json:"controller"`
	Namespaces        map[string]types.Namespace `json:"namespaces"`
	SessionProperties map[string]string          `json:"sessionProperties,omitempty"`
	Expiry            int64                      `json:"expiry"`
	PairingTopic      string                     `json:"pairingTopic"`
}

// AuthenticateParams are the params of wc_sessionAuthenticate.
type AuthenticateParams struct {
	Requester       types.Participant `json:"requester"`
	AuthPayload     types.AuthPayload `json:"authPayload"`
	ExpiryTimestamp int64             `json:"expiryTimestamp"`
}

// DeleteParams are the params of wc_pairingDelete and wc_sessionDelete.
type DeleteParams struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
