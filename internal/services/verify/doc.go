// Package verify talks to the origin verification service. Given the
// fingerprint of a decrypted request it fetches the attestation (the origin
// the request really came from and whether it is a known scam) and turns it
// into a VerifyContext for the application.
package verify
