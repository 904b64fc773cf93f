package namespace

import (
	"slices"
	"sort"

	"walletlink/internal/domain/types"
	"walletlink/internal/protocol/reason"
)

// Mode selects how strictly offered namespaces must match required ones.
type Mode int

const (
	// Superset accepts grants that include everything required.
	Superset Mode = iota
	// Exact accepts only grants equal to what was required.
	Exact
)

// Conform reports whether offered satisfies required. The returned error is
// a *Violation naming the first failing key in lexical order.
func Conform(offered map[string]types.Namespace, required map[string]types.ProposalNamespace, mode Mode) error {
	for _, key := range sortedKeys(required) {
		req := required[key]
		off, ok := offered[key]
		if !ok {
			return violation(key, reason.UnsupportedNamespaceKey, "required namespace %s not approved", key)
		}
		if missing := difference(requiredChains(key, req), offeredChains(key, off)); len(missing) > 0 {
			return violation(key, reason.UnsupportedChains, "%s: required chains %v not approved", key, missing)
		}
		if missing := difference(req.Methods, off.Methods); len(missing) > 0 {
			return violation(key, reason.UserRejectedMethods, "%s: required methods %v not approved", key, missing)
		}
		if missing := difference(req.Events, off.Events); len(missing) > 0 {
			return violation(key, reason.UserRejectedEvents, "%s: required events %v not approved", key, missing)
		}
		if mode != Exact {
			continue
		}
		if extra := difference(offeredChains(key, off), requiredChains(key, req)); len(extra) > 0 {
			return violation(key, reason.UnsupportedChains, "%s: chains %v were not requested", key, extra)
		}
		if extra := difference(off.Methods, req.Methods); len(extra) > 0 {
			return violation(key, reason.UnsupportedMethods, "%s: methods %v were not requested", key, extra)
		}
		if extra := difference(off.Events, req.Events); len(extra) > 0 {
			return violation(key, reason.UnsupportedEvents, "%s: events %v were not requested", key, extra)
		}
	}
	return nil
}

func requiredChains(key string, n types.ProposalNamespace) []string {
	if len(n.Chains) == 0 && IsChainID(key) {
		return []string{key}
	}
	return n.Chains
}

func offeredChains(key string, n types.Namespace) []string {
	out := slices.Clone(n.Chains)
	if IsChainID(key) {
		out = append(out, key)
	}
	for _, a := range n.Accounts {
		out = append(out, ChainOf(a))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// difference returns the members of want missing from have, in order.
func difference(want, have []string) []string {
	var out []string
	for _, w := range want {
		if !slices.Contains(have, w) && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
