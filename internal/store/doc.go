// Package store provides persistence for walletlink's state.
//
// A KV backend (memory, file, SQLite or Redis) holds opaque values in named
// buckets. Map layers a typed, CBOR-encoded view over one bucket, and
// Sealed encrypts the values of a bucket with a passphrase-derived key.
// All backends are safe for concurrent use.
//
// Buckets:
//   - proposals: pending session proposals by proposer public key
//   - proposal_links: proposals by the session topic they settle on
//   - verify: verification contexts by request or proposal id
//   - rpc_history: outbound requests awaiting a response, and seen inbound ids
//   - pairings, sessions: the registries, by topic
//   - keys: private keys and topic secrets, always sealed
package store
