// Package domain defines the data models and contracts shared across the
// node: topics, keys, proposals, sessions, pairings, verification results
// and the transport, key agreement and storage interfaces.
// It contains plain types and interfaces only.
package domain
