// Package crypto exposes the primitives the pairing and session layers use.
//
// Contents
//
//   - X25519 key generation and Diffie-Hellman (GenerateX25519, DH)
//   - Shared symmetric keys derived with HKDF-SHA256 (SharedKey) and the
//     topic naming rule built on them (TopicFromKey)
//   - The type 0 message envelope: ChaCha20-Poly1305 under a topic key,
//     base64 on the wire (Seal, Open)
//   - Message fingerprints for origin attestation (Fingerprint)
//   - Passphrase key derivation for secrets at rest (DeriveKEK)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Keys are fixed-size array types from internal/domain/types. Callers should
// treat returned secrets as sensitive and rely on Wipe when practical.
package crypto
