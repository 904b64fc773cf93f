package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"walletlink/internal/app"
	"walletlink/internal/domain"
	"walletlink/internal/protocol/namespace"
)

// propose --chain eip155:1 --method personal_sign: act as a dapp.
func proposeCmd() *cobra.Command {
	var chains, methods, events []string
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose a session and wait for a wallet to answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			required, err := requiredNamespaces(chains, methods, events)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				session, err := a.ProposeAndWait(ctx, required, func(uri string) {
					fmt.Fprintln(cmd.OutOrStdout(), uri)
				})
				if err != nil {
					return err
				}
				printSession(cmd, session)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&chains, "chain", nil, "CAIP-2 chain to require (repeatable)")
	cmd.Flags().StringSliceVar(&methods, "method", nil, "method to require")
	cmd.Flags().StringSliceVar(&events, "event", nil, "event to require")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}

// requiredNamespaces groups chains under their namespace key and gives
// every key the same methods and events.
func requiredNamespaces(chains, methods, events []string) (map[string]domain.ProposalNamespace, error) {
	out := make(map[string]domain.ProposalNamespace)
	for _, c := range chains {
		if !namespace.IsChainID(c) {
			return nil, fmt.Errorf("chain %q is not a CAIP-2 chain id", c)
		}
		key, _, _ := strings.Cut(c, ":")
		n := out[key]
		n.Chains = append(n.Chains, c)
		n.Methods = methods
		n.Events = events
		out[key] = n
	}
	if err := namespace.ValidateProposal(out); err != nil {
		return nil, err
	}
	return out, nil
}
