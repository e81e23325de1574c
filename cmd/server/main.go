package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mdsplit/internal/api"
	"github.com/dgallion1/mdsplit/internal/config"
	"github.com/dgallion1/mdsplit/internal/metrics"
	"github.com/dgallion1/mdsplit/internal/normalize"
	"github.com/dgallion1/mdsplit/internal/pathstore"
	"github.com/dgallion1/mdsplit/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	norm, err := normalize.ForName(cfg.Normalizer, normalize.Options{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
		Stats:  normalize.NewLLMStats(time.Hour),
		Logger: log.With("component", "normalize"),
	})
	if err != nil {
		log.Error("invalid normalizer", "error", err)
		os.Exit(1)
	}

	var (
		ps    *pathstore.Client
		store *pathstore.SectionStore
	)
	if cfg.StoreEnabled() {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		store = pathstore.NewSectionStore(ps)
	} else {
		log.Warn("PATHSTORE_API_KEY not set, ingested sections are kept in memory only")
	}

	m := metrics.New()

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, norm, store, m, log.With("component", "pipeline"))
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if c, ok := norm.(*normalize.ClaudeNormalizer); ok {
			c.Close()
		}
		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting mdsplit", "port", cfg.Port, "normalizer", norm.Name(), "store", store != nil)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
