package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"walletlink/internal/services/pairing"
)

func uriCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uri <pairing-uri>",
		Short: "Decode a pairing URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := pairing.ParseURI(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Topic:   %s\n", u.Topic)
			fmt.Fprintf(out, "Relay:   %s\n", u.RelayProtocol)
			fmt.Fprintf(out, "Methods: %s\n", strings.Join(u.Methods, ", "))
			if !u.Expiry.IsZero() {
				fmt.Fprintf(out, "Expires: %s\n", u.Expiry.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
