package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damacus/iron-gallery/internal/config"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the admin panel and share link server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP server port (env: PORT)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}

	if cfg.UsesDefaultSecret() {
		slog.Warn("session.secret is the built-in default; admin tokens can be forged until SESSION_SECRET is set")
	}
	if cfg.Admin.Password == "" {
		slog.Warn("admin.password is empty; admin login is disabled")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// No WriteTimeout: zip downloads of large folders stream for as long as they need.
	server := &http.Server{
		Addr:              addr,
		Handler:           newServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"bucket", cfg.S3.Bucket,
		"endpoint", cfg.S3.Endpoint,
		"shares_backend", cfg.Shares.Backend,
		"version", version,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// buildDeps creates the S3 client and everything layered on it. Nothing
// here touches the network.
func buildDeps(cfg *config.Config) (serverDeps, error) {
	client, err := services.NewMinioClient(cfg.S3)
	if err != nil {
		return serverDeps{}, fmt.Errorf("create s3 client: %w", err)
	}
	store, err := services.NewObjectStore(client, cfg.S3.Bucket)
	if err != nil {
		return serverDeps{}, err
	}

	backend, err := sharesBackend(cfg, store)
	if err != nil {
		return serverDeps{}, err
	}

	var usage *services.UsageReporter
	if usageClient, err := services.NewUsageClient(cfg.S3); err != nil {
		slog.Warn("storage usage report disabled", "err", err)
	} else {
		usage = services.NewUsageReporter(usageClient, cfg.S3.Bucket)
	}

	imageOrigin, err := services.PresignOrigin(cfg.S3)
	if err != nil {
		return serverDeps{}, err
	}

	return serverDeps{
		Store:       store,
		Registry:    shares.NewRegistry(backend),
		Gate:        services.NewAdminGate(cfg.Admin.Password, cfg.Session.Secret, cfg.Admin.TokenTTL),
		Sessions:    services.NewSessionStore(services.DefaultSessionIdleTimeout),
		Usage:       usage,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		ImageOrigin: imageOrigin,
	}, nil
}

// sharesBackend picks where the share document lives. The object backend
// may use its own bucket on the same endpoint.
func sharesBackend(cfg *config.Config, store *services.ObjectStore) (shares.Backend, error) {
	switch cfg.Shares.Backend {
	case "object":
		sharesStore, err := store.WithBucket(cfg.Shares.Bucket)
		if err != nil {
			return nil, err
		}
		return shares.NewObjectBackend(sharesStore, cfg.Shares.Key), nil
	case "file":
		return shares.NewFileBackend(cfg.Shares.File), nil
	default:
		return nil, fmt.Errorf("%w: unknown shares backend %q", services.ErrConfiguration, cfg.Shares.Backend)
	}
}
