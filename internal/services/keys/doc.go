// Package keys implements key agreement over a sealed key store: key pair
// creation, X25519 agreement into a topic secret, and the per-topic secret
// registry the relay interactor encrypts with.
package keys
