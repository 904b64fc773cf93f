// Package namespace validates CAIP-25 namespace mappings.
//
// Proposal namespaces say what a proposer requires. Session namespaces say
// what a responder grants. Conform decides whether a grant satisfies a
// requirement and reports the first failing namespace key with a wire reason.
package namespace
