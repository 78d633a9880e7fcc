package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lockbox/internal/api"
	"lockbox/internal/auth"
	"lockbox/internal/config"
	"lockbox/internal/vault"
	"lockbox/internal/websocket"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			logger, err := setupLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			blobs, err := openBlobStorage(ctx, cfg)
			if err != nil {
				return err
			}

			wsHub := websocket.NewHub(logger)
			go wsHub.Run(ctx)

			service, err := vault.NewService(vault.Config{
				Store:     st,
				Blobs:     blobs,
				Hasher:    auth.NewBcryptHasher(bcrypt.DefaultCost),
				Publisher: wsHub,
				Logger:    logger.Named("vault"),
			})
			if err != nil {
				return err
			}

			server := api.NewServer(cfg, service, st, wsHub, logger.Named("api"))
			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					zap.String("addr", cfg.Server.Addr),
					zap.String("db_driver", cfg.DB.Driver),
					zap.String("storage_driver", cfg.Storage.Driver),
				)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
