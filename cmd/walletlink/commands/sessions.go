package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"walletlink/internal/app"
	"walletlink/internal/domain"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				sessions, err := a.ListSessions(ctx)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
					return nil
				}
				sort.Slice(sessions, func(i, j int) bool { return sessions[i].Expiry.Before(sessions[j].Expiry) })
				for _, s := range sessions {
					printSession(cmd, s)
				}
				return nil
			})
		},
	}
}

func printSession(cmd *cobra.Command, s domain.Session) {
	out := cmd.OutOrStdout()
	role := "peer"
	if s.IsController() {
		role = "controller"
	}
	fmt.Fprintf(out, "Topic:    %s\n", s.Topic)
	fmt.Fprintf(out, "Peer:     %s (%s)\n", s.Peer.Metadata.Name, s.Peer.Metadata.URL)
	fmt.Fprintf(out, "Role:     %s\n", role)
	fmt.Fprintf(out, "Acked:    %t\n", s.Acknowledged)
	fmt.Fprintf(out, "Expires:  %s\n", s.Expiry.Format("2006-01-02 15:04:05"))
	keys := make([]string, 0, len(s.Namespaces))
	for k := range s.Namespaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %s\n", k, strings.Join(s.Namespaces[k].Accounts, ", "))
	}
}
