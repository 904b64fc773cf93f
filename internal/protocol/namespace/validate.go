package namespace

import (
	"slices"

	"walletlink/internal/domain/types"
	"walletlink/internal/protocol/reason"
)

// ValidateProposal checks that a proposer's namespaces are well formed.
// An empty mapping is valid; callers that need at least one namespace
// check that themselves.
func ValidateProposal(ns map[string]types.ProposalNamespace) error {
	for _, key := range sortedKeys(ns) {
		n := ns[key]
		if !validKey(key) {
			return violation(key, reason.UnsupportedNamespaceKey, "namespace key %s does not conform to CAIP-2", key)
		}
		if err := validateChains(key, n.Chains); err != nil {
			return err
		}
	}
	return nil
}

func validateChains(key string, chains []string) *Violation {
	if IsChainID(key) {
		if len(chains) > 0 && !(len(chains) == 1 && chains[0] == key) {
			return violation(key, reason.UnsupportedChains, "chain id key %s must not list other chains", key)
		}
		return nil
	}
	if len(chains) == 0 {
		return violation(key, reason.UnsupportedChains, "namespace %s lists no chains", key)
	}
	for _, c := range chains {
		if !IsChainID(c) || NamespaceOf(c) != key {
			return violation(key, reason.UnsupportedChains, "chain %s is not a %s chain id", c, key)
		}
	}
	return nil
}

// ValidateSession checks that a responder's namespaces are well formed:
// valid keys, CAIP-10 accounts belonging to the key, and an account for
// every listed chain.
func ValidateSession(ns map[string]types.Namespace) error {
	for _, key := range sortedKeys(ns) {
		n := ns[key]
		if !validKey(key) {
			return violation(key, reason.UnsupportedNamespaceKey, "namespace key %s does not conform to CAIP-2", key)
		}
		if len(n.Accounts) == 0 {
			return violation(key, reason.UnsupportedAccounts, "namespace %s has no accounts", key)
		}
		for _, a := range n.Accounts {
			if !IsAccount(a) || !belongs(key, ChainOf(a)) {
				return violation(key, reason.UnsupportedAccounts, "account %s does not conform to CAIP-10 under %s", a, key)
			}
		}
		for _, c := range n.Chains {
			if !IsChainID(c) || !belongs(key, c) {
				return violation(key, reason.UnsupportedChains, "chain %s is not a %s chain id", c, key)
			}
			if !slices.ContainsFunc(n.Accounts, func(a string) bool { return ChainOf(a) == c }) {
				return violation(key, reason.UnsupportedAccounts, "chain %s has no account", c)
			}
		}
	}
	return nil
}

func belongs(key, chain string) bool {
	if IsChainID(key) {
		return chain == key
	}
	return NamespaceOf(chain) == key
}
