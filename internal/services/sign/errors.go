package sign

import "errors"

var (
	ErrEmptyNamespaces           = errors.New("namespaces must not be empty")
	ErrProposalNotFound          = errors.New("proposal not found")
	ErrProposalExpired           = errors.New("proposal expired")
	ErrNetworkNotConnected       = errors.New("network not connected")
	ErrAgreementMissingOrInvalid = errors.New("key agreement missing or invalid")
	ErrRelayNotFound             = errors.New("proposal has no relay protocol")
	ErrPairingNotFound           = errors.New("pairing not found")
	ErrSessionNotFound           = errors.New("session not found")
)
