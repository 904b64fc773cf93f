// Package pairing manages pairings: the shared-key channels created from a
// wc: URI on which session proposals and authentication requests travel.
package pairing
