package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/studio16/internal/http/server"
	"github.com/diagnosis/studio16/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Example: `  # Serve with in-memory device storage on :8080
  studio serve

  # Keep device storage in Redis and publish activity to NATS
  STORAGE_DRIVER=redis NATS_URL=nats://localhost:4222 studio serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			store, pub, err := server.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			defer pub.Close()

			srv, err := server.New(server.Options{Config: cfg, Store: store, Events: pub, Clock: clockwork.NewRealClock()})
			if err != nil {
				return err
			}
			defer srv.Close()
			httpSrv := srv.HTTPServer(cfg.Server)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("Starting studio server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("Shutting down studio server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}
