// Package sign is the session negotiation engine.
//
// It drives both sides of the handshake. The proposing app sends
// wc_sessionPropose on a pairing topic; the wallet approves or rejects it;
// approval derives a session topic from an X25519 agreement, answers the
// proposal and sends wc_sessionSettle on the new topic; the app confirms
// the settlement. The engine also receives wc_sessionAuthenticate requests
// and hands them to the application with a verification context.
//
// Inbound traffic is routed by an explicit method table. Every method and
// direction gets its own worker goroutine, so messages of one kind are
// handled in arrival order while different kinds proceed independently.
// Results reach the application through Subscribe.
package sign
