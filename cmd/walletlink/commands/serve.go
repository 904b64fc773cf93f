package commands

import (
	"context"

	"github.com/spf13/cobra"

	"walletlink/internal/app"
)

// serve [uri]: act as a wallet until interrupted.
func serveCmd() *cobra.Command {
	var reject bool
	var accounts []string
	cmd := &cobra.Command{
		Use:   "serve [pairing-uri]",
		Short: "Answer session proposals as a wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(accounts) > 0 {
				cfg.Wallet.Accounts = accounts
			}
			opts := app.ServeOptions{Reject: reject}
			if len(args) == 1 {
				opts.URI = args[0]
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "decline every proposal")
	cmd.Flags().StringSliceVar(&accounts, "account", nil, "CAIP-10 account to offer (repeatable; overrides wallet.accounts)")
	return cmd
}
