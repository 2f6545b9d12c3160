package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cadimport/internal/blob"
	"cadimport/internal/config"
	"cadimport/internal/httpapi"
	"cadimport/internal/importer"
	"cadimport/internal/metrics"
	"cadimport/internal/metrics/prompush"
	"cadimport/internal/storage/postgres"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg.LogLevel))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PushgatewayURL != "" {
		backend, err := prompush.New(cfg.PushgatewayURL, cfg.MetricsJob)
		if err != nil {
			return err
		}
		metrics.SetBackend(backend)
	}

	store, closeStore, err := postgres.New(ctx, cfg.DatabaseDSN, log)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		return err
	}

	eng := importer.NewEngine(store, blobs, log, cfg.ValidateWorkers)
	api := httpapi.New(eng, store, store, blobs, log, cfg.PageSize)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
