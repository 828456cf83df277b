package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicetag/internal/logging"
	"voicetag/internal/review"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the manual labeling API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			srv := review.NewServer(cfg, logger)
			serveCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(serveCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Review API listening on %s (Ctrl+C to stop)\n", srv.Addr())

			<-serveCtx.Done()
			srv.Stop()
			return nil
		},
	}
}
