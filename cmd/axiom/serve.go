package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	srv "github.com/mohammad-safakhou/axiom/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var autoMigrate bool
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, *cfgPath, true)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if serveAddr != "" {
				a.cfg.Server.Address = serveAddr
			}
			if autoMigrate && a.store != nil {
				if err := srv.Migrate("file://migrations", a.cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
					a.logger.Warn("auto migrate failed", zap.Error(err))
				}
			}
			return srv.Run(ctx, srv.Deps{
				Config:     a.cfg,
				Researcher: a.orch,
				Store:      a.store,
				Redis:      a.rdb,
				Logger:     a.logger,
			})
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	serve.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending migrations on start")

	return serve
}
