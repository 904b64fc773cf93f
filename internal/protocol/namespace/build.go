package namespace

import (
	"slices"

	"walletlink/internal/domain/types"
)

// FromAccounts builds the namespaces a wallet holding accounts would grant
// for the given proposal. Every required key appears in the result, even
// when no account matches, so Conform can name it. Optional keys appear
// only when at least one account matches.
func FromAccounts(required, optional map[string]types.ProposalNamespace, accounts []string) map[string]types.Namespace {
	out := make(map[string]types.Namespace)
	add := func(key string, p types.ProposalNamespace, always bool) {
		chains := requiredChains(key, p)
		var accs []string
		for _, a := range accounts {
			if slices.Contains(chains, ChainOf(a)) {
				accs = append(accs, a)
			}
		}
		if len(accs) == 0 && !always {
			return
		}
		n := out[key]
		n.Accounts = union(n.Accounts, accs)
		n.Methods = union(n.Methods, p.Methods)
		n.Events = union(n.Events, p.Events)
		if !IsChainID(key) {
			var granted []string
			for _, c := range chains {
				if slices.ContainsFunc(accs, func(a string) bool { return ChainOf(a) == c }) {
					granted = append(granted, c)
				}
			}
			n.Chains = union(n.Chains, granted)
		}
		out[key] = n
	}
	for _, key := range sortedKeys(required) {
		add(key, required[key], true)
	}
	for _, key := range sortedKeys(optional) {
		add(key, optional[key], false)
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
