// Package relay moves encrypted JSON-RPC messages between peers.
//
// A Broker is the pub/sub relay itself: it publishes envelopes on topics,
// returns once the relay acknowledged them, keeps undelivered messages in a
// per-topic mailbox until their TTL lapses, and never echoes a client's own
// messages back to it. Two brokers are provided:
//   - NATS, over a JetStream stream with one durable consumer per topic.
//   - Memory, an in-process Hub for development and tests.
//
// The Interactor sits on top of a Broker and implements domain.Transport:
// it seals and opens envelopes with the topic secret, records outbound
// requests so responses can be matched to them, drops duplicates, and
// publishes every decrypted message on a single inbound channel.
package relay
