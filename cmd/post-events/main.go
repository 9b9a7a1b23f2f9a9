// Command post-events écoute les événements post.created et post.deleted
// publiés par la fonction et les journalise avec leur trace.
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

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kerri-knier/blog/config"
	"github.com/kerri-knier/blog/internal/adapters/primary/events"
	"github.com/kerri-knier/blog/internal/bootstrap"
)

func main() {
	// 1. Config & Logger
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	bootstrap.InitLogger(cfg)
	if cfg.NatsUrl == "" {
		slog.Error("NATS_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := bootstrap.InitTracer(ctx, cfg, "blog-post-events")
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: Event Broker NATS
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()
	slog.Info("✅ Connected to NATS")

	// 4. Consumer
	if err := events.NewEventHandler().Register(nc); err != nil {
		slog.Error("Failed to subscribe to NATS", "error", err)
		os.Exit(1)
	}
	slog.Info("👂 Listening for events (NATS)")

	// 5. Metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down consumer...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	slog.Info("👋 Consumer exited")
}
