package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/jackie/internal/api"
	"github.com/isdelr/jackie/internal/config"
	"github.com/isdelr/jackie/internal/database"
	"github.com/isdelr/jackie/internal/logger"
	"github.com/isdelr/jackie/internal/monitoring"
	"github.com/isdelr/jackie/internal/services"
	"github.com/isdelr/jackie/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// Load configuration; flags override the environment.
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = &config.Config{}
	}

	cmd := &cobra.Command{
		Use:          "jackie",
		Short:        "Reporting service over the couchbase event log",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return fmt.Errorf("failed to load configuration: %w", cfgErr)
			}
			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Init(level)
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level (off, trace, debug, info, warn, error)")
	cmd.Flags().IntVarP(&cfg.ServerPort, "port", "p", cfg.ServerPort, "port to bind the server to")
	cmd.Flags().StringVar(&cfg.CouchbaseHost, "couchbase-host", cfg.CouchbaseHost, "hostname of the couchbase cluster")
	cmd.Flags().BoolVar(&cfg.ConnectPerRequest, "connect-per-request", cfg.ConnectPerRequest, "open a new bucket connection for every request")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up the bucket source
	connector := database.NewConnector(cfg.CouchbaseHost)
	var source database.Source
	if cfg.ConnectPerRequest {
		source = database.PerRequest(connector, database.BucketName)
	} else {
		bucket, err := connector.Connect(ctx, database.BucketName)
		if err != nil {
			return fmt.Errorf("failed to connect to couchbase: %w", err)
		}
		defer bucket.Close()
		source = database.Shared(bucket)
	}

	eventService := services.NewEventService(source)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	if cfg.RefreshSchedule != "" {
		refresher := monitoring.NewRefresher(eventService, hub, cfg.RefreshSchedule)
		if err := refresher.Start(); err != nil {
			return err
		}
		defer refresher.Stop()
	}

	router := api.NewRouter(hub, eventService, cfg.AllowedOrigins, cfg.StaticDir)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ListenAndServe(): %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}
