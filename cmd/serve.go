package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/showscout/showscout-cli/internal/learn"
	"github.com/showscout/showscout-cli/internal/review"
	"github.com/showscout/showscout-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin review API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if cfg.Server.AdminToken == "" {
			zap.L().Warn("no admin token configured, admin routes are open")
		}

		srv := server.New(
			review.New(st, cfg.Review.BatchCap),
			st,
			learn.New(st, cfg.Learn.WindowDays, cfg.Learn.Floor),
			cfg.Server.AdminToken,
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return srv.Run(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
