package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	HTTPAdapter "github.com/bnema/shortsdash/internal/adapter/http"
	"github.com/bnema/shortsdash/internal/adapter/http/middleware"
	sqlitestore "github.com/bnema/shortsdash/internal/adapter/storage/sqlite"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

// Serve runs the dashboard until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info.Printf("starting shortsdash %s on port %d, backend=%s", version, cfg.Server.Port, cfg.Backend.URL)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := sqlitestore.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() { _ = store.Close() }()

	client := r.client()
	publicURL := strings.TrimRight(cfg.Backend.PublicURL, "/")

	server := HTTPAdapter.NewServer(HTTPAdapter.Options{
		BackendFor: func(cookie string) port.Backend { return client.ForSession(cookie) },
		History:    store,
		CSRFSecret: cfg.Server.CSRFSecret,
		Gate: middleware.GateConfig{
			CookieName:     cfg.Session.CookieName,
			LoginPath:      cfg.Session.LoginPath,
			PublicPaths:    cfg.Session.PublicPaths,
			PublicPrefixes: cfg.Session.PublicPrefixes,
		},
		GoogleLoginURL:   publicURL + "/auth/login/google",
		MediaOrigins:     []string{publicURL},
		KeepAlive:        cfg.Server.KeepAlive,
		CreatesPerMinute: cfg.Limits.CreatesPerMinute,
		CreateBurst:      cfg.Limits.CreateBurst,
		HealthCheck:      store.Ping,
		Version:          version,
	})

	pruneCtx, pruneCancel := context.WithCancel(ctx)
	defer pruneCancel()
	go pruneHistory(pruneCtx, store, cfg.Storage.HistoryRetention)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Event streams only end when their view closes.
	httpServer.RegisterOnShutdown(server.Close)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info.Printf("received %s, shutting down", sig)
		case <-ctx.Done():
			logger.Info.Printf("context cancelled, shutting down")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	<-shutdownDone
	return nil
}

type historyPruner interface {
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// pruneHistory drops expired status history now and then hourly.
func pruneHistory(ctx context.Context, store historyPruner, retention time.Duration) {
	if retention <= 0 {
		return
	}

	prune := func() {
		n, err := store.PruneHistory(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Error.Printf("history cleanup failed: %v", err)
			return
		}
		if n > 0 {
			logger.Info.Printf("pruned %d history entries older than %s", n, retention)
		}
	}

	prune()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}
