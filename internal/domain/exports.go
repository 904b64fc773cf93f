package domain

import (
	interfaces "walletlink/internal/domain/interfaces"
	types "walletlink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Topic                 = types.Topic
	PublicKey             = types.PublicKey
	PrivateKey            = types.PrivateKey
	SymmetricKey          = types.SymmetricKey
	Metadata              = types.Metadata
	Participant           = types.Participant
	RelayProtocolOptions  = types.RelayProtocolOptions
	ProposalNamespace     = types.ProposalNamespace
	Namespace             = types.Namespace
	Proposal              = types.Proposal
	Session               = types.Session
	Pairing               = types.Pairing
	VerifyContext         = types.VerifyContext
	Validation            = types.Validation
	Attestation           = types.Attestation
	AuthPayload           = types.AuthPayload
	AuthenticationRequest = types.AuthenticationRequest
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Transport          = interfaces.Transport
	KeyAgreement       = interfaces.KeyAgreement
	Verifier           = interfaces.Verifier
	Pairings           = interfaces.Pairings
	KV                 = interfaces.KV
	ProposalStore      = interfaces.ProposalStore
	ProposalLinkStore  = interfaces.ProposalLinkStore
	VerifyContextStore = interfaces.VerifyContextStore
	SessionStore       = interfaces.SessionStore
	PairingStore       = interfaces.PairingStore
)

// Parsers re-exported for callers that only import domain.
var (
	ParsePublicKey    = types.ParsePublicKey
	ParseSymmetricKey = types.ParseSymmetricKey
)

// Constants re-exported from types.
const (
	DefaultRelayProtocol = types.DefaultRelayProtocol

	ValidationValid   = types.ValidationValid
	ValidationInvalid = types.ValidationInvalid
	ValidationUnknown = types.ValidationUnknown
	ValidationScam    = types.ValidationScam
)
