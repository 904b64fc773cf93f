package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"walletlink/internal/crypto"
	"walletlink/internal/domain"
)

// topic <self-private-hex> <peer-public-hex>: print the derived session topic.
func topicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topic <self-private-hex> <peer-public-hex>",
		Short: "Derive the session topic both peers subscribe to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var priv domain.PrivateKey
			raw, err := hex.DecodeString(args[0])
			if err != nil || len(raw) != len(priv) {
				return fmt.Errorf("private key must be %d hex-encoded bytes", len(priv))
			}
			copy(priv[:], raw)
			defer crypto.Wipe(priv[:])
			crypto.Wipe(raw)

			peer, err := domain.ParsePublicKey(args[1])
			if err != nil {
				return err
			}
			self, err := crypto.PublicFromPrivate(priv)
			if err != nil {
				return err
			}
			key, err := crypto.SharedKey(priv, peer)
			if err != nil {
				return err
			}
			defer crypto.Wipe(key[:])

			fmt.Fprintf(cmd.OutOrStdout(), "Self:  %s\n", self.Hex())
			fmt.Fprintf(cmd.OutOrStdout(), "Topic: %s\n", crypto.TopicFromKey(key))
			return nil
		},
	}
}
