// Package commands defines the walletlink CLI and wires dependencies for subcommands.
//
// Commands
//
//   - serve      Run the wallet role: join a pairing URI and answer proposals
//   - propose    Run the app role: print a pairing URI and wait for a session
//   - sessions   List stored sessions
//   - topic      Derive a session topic from a private key and a peer public key
//   - uri        Decode a pairing URI
//
// # Implementation
//
// The root command loads the YAML config and builds the logger before any
// subcommand runs. Commands that talk to the relay build the full dependency
// graph with app.NewWire and close it on exit.
package commands
