package types

import "time"

// AuthPayload is the sign-in-with-wallet message the requester wants signed.
type AuthPayload struct {
	Type      string   `json:"type" cbor:"type"`
	Chains    []string `json:"chains" cbor:"chains"`
	Domain    string   `json:"domain" cbor:"domain"`
	Aud       string   `json:"aud" cbor:"aud"`
	Nonce     string   `json:"nonce" cbor:"nonce"`
	Version   string   `json:"version" cbor:"version"`
	Iat       string   `json:"iat" cbor:"iat"`
	Nbf       string   `json:"nbf,omitempty" cbor:"nbf,omitempty"`
	Exp       string   `json:"exp,omitempty" cbor:"exp,omitempty"`
	Statement string   `json:"statement,omitempty" cbor:"statement,omitempty"`
	RequestID string   `json:"requestId,omitempty" cbor:"requestId,omitempty"`
	Resources []string `json:"resources,omitempty" cbor:"resources,omitempty"`
}

// AuthenticationRequest is an inbound wc_sessionAuthenticate request
// surfaced to the application.
type AuthenticationRequest struct {
	ID        uint64      `cbor:"id"`
	Topic     Topic       `cbor:"topic"`
	Payload   AuthPayload `cbor:"payload"`
	Requester Participant `cbor:"requester"`
	Expiry    time.Time   `cbor:"expiry"`
}
