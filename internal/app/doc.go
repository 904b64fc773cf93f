// Package app wires application dependencies for the CLI.
//
// It builds the concrete store, relay broker, key service, verification
// client and negotiation engine from Config, exposing them via Wire, and
// runs the wallet and proposer roles on top of them.
package app
