// Package reason holds the closed set of error reasons exchanged with peers.
//
// Each family is its own integer type so a handler cannot send a reason that
// does not exist. Codes and default messages are fixed by the protocol.
package reason
