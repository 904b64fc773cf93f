package types

// Validation is the verdict of the verification service on a request origin.
type Validation string

const (
	ValidationValid   Validation = "VALID"
	ValidationInvalid Validation = "INVALID"
	ValidationUnknown Validation = "UNKNOWN"
	ValidationScam    Validation = "SCAM"
)

// VerifyContext records what the verification service said about the
// request (or proposal) identified by ID.
type VerifyContext struct {
	ID         string     `cbor:"id"`
	Origin     *string    `cbor:"origin,omitempty"`
	Domain     string     `cbor:"domain"`
	IsScam     *bool      `cbor:"isScam,omitempty"`
	Validation Validation `cbor:"validation"`
	VerifyURL  string     `cbor:"verifyUrl,omitempty"`
}

// Attestation is the verification service's answer for one message
// fingerprint. Both fields are absent when the service knows nothing.
type Attestation struct {
	Origin *string `json:"origin,omitempty"`
	IsScam *bool   `json:"isScam,omitempty"`
}
