package namespace_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"walletlink/internal/domain/types"
	"walletlink/internal/protocol/namespace"
)

var methodPool = []string{"eth_sign", "personal_sign", "eth_sendTransaction", "eth_signTypedData", "wallet_switchEthereumChain"}

func chainsOf(ids []int) []string {
	out := []string{}
	seen := map[int]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, fmt.Sprintf("eip155:%d", id))
		}
	}
	return out
}

func methodsOf(idx []int) []string {
	out := []string{}
	seen := map[int]bool{}
	for _, i := range idx {
		if !seen[i] {
			seen[i] = true
			out = append(out, methodPool[i])
		}
	}
	return out
}

func grantFor(chains, methods []string) types.Namespace {
	n := types.Namespace{Methods: methods, Events: []string{"chainChanged"}}
	for _, c := range chains {
		n.Accounts = append(n.Accounts, c+":0xab16")
	}
	return n
}

func TestConformProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	chainIDs := gen.SliceOfN(4, gen.IntRange(1, 8))
	methodIdx := gen.SliceOf(gen.IntRange(0, len(methodPool)-1))

	properties.Property("any superset grant conforms", prop.ForAll(
		func(reqChains, extraChains, reqMethods, extraMethods []int) bool {
			req := map[string]types.ProposalNamespace{"eip155": {
				Chains:  chainsOf(reqChains),
				Methods: methodsOf(reqMethods),
				Events:  []string{"chainChanged"},
			}}
			grant := grantFor(
				chainsOf(append(append([]int{}, reqChains...), extraChains...)),
				methodsOf(append(append([]int{}, reqMethods...), extraMethods...)),
			)
			return namespace.Conform(map[string]types.Namespace{"eip155": grant}, req, namespace.Superset) == nil
		},
		chainIDs, chainIDs, methodIdx, methodIdx,
	))

	properties.Property("dropping a required method names the key", prop.ForAll(
		func(reqChains, reqMethods []int) bool {
			methods := methodsOf(reqMethods)
			if len(methods) == 0 {
				return true
			}
			req := map[string]types.ProposalNamespace{"eip155": {
				Chains:  chainsOf(reqChains),
				Methods: methods,
			}}
			grant := grantFor(chainsOf(reqChains), methods[1:])
			err := namespace.Conform(map[string]types.Namespace{"eip155": grant}, req, namespace.Superset)
			var v *namespace.Violation
			return errors.As(err, &v) && v.Key == "eip155" && v.Reason.Code == 5002
		},
		chainIDs, methodIdx,
	))

	properties.Property("dropping a required chain fails", prop.ForAll(
		func(reqChains []int) bool {
			chains := chainsOf(reqChains)
			req := map[string]types.ProposalNamespace{"eip155": {Chains: chains}}
			grant := grantFor(chains[1:], nil)
			err := namespace.Conform(map[string]types.Namespace{"eip155": grant}, req, namespace.Superset)
			var v *namespace.Violation
			return errors.As(err, &v) && v.Reason.Code == 5100
		},
		chainIDs,
	))

	properties.TestingRun(t)
}
