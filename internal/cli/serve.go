package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nfxcode/internal/server"
)

func newServeCmd(verbose *bool) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the finder over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}

			logger := newLogger(*verbose)
			f, err := buildFinder(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(f, logger, cfg.Serve).Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")

	return cmd
}
