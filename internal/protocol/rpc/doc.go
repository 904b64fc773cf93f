// Package rpc defines the JSON-RPC 2.0 framing spoken over relay topics and
// the registry of protocol methods with their relay routing parameters.
//
// Every method has a request route and up to three response routes
// (approve, reject, auto-reject). A route is the relay tag, the message TTL
// and whether the relay should prompt the receiving wallet. Tags are part of
// the wire contract and must never change.
package rpc
