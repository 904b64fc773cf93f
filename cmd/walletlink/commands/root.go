package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"walletlink/internal/app"
	"walletlink/internal/logging"
)

var (
	configPath string
	cfg        *app.Config
	logger     zerolog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "walletlink",
		Short:        "Session negotiation between dapps and wallets over an encrypted relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = c
			logger = logging.NewStderr(cfg.Log, "walletlink")
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "walletlink.yaml", "path to the YAML config file")

	root.AddCommand(serveCmd(), proposeCmd(), sessionsCmd(), topicCmd(), uriCmd())
	return root.Execute()
}

// withApp builds the dependency graph, runs fn with a context cancelled on
// SIGINT or SIGTERM, and tears the graph down afterwards.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := app.NewWire(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()
	return fn(ctx, app.New(w, cfg, logger))
}
