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

	"github.com/kerri-knier/blog/config"
	"github.com/kerri-knier/blog/internal/adapters/primary/api"
	"github.com/kerri-knier/blog/internal/adapters/primary/httpserver"
	"github.com/kerri-knier/blog/internal/adapters/primary/lambda"
	"github.com/kerri-knier/blog/internal/bootstrap"
	"github.com/kerri-knier/blog/internal/core/services"
)

func main() {
	// 1. Config & Logger
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	bootstrap.InitLogger(cfg)
	slog.Info("🚀 Starting Blog Function", "config", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := bootstrap.InitTracer(ctx, cfg, "blog")
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: store physique (connexion partagée, liaison par requête)
	backend, closeBackend, err := bootstrap.OpenBackend(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	// 4. Infrastructure: Event Broker (optionnel)
	publisher, closePublisher, err := bootstrap.OpenPublisher(cfg)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer closePublisher()

	// 5. Core + façade
	loader := services.NewLoader(backend, publisher, time.Now)
	handler := api.NewHandler(loader, cfg.TableName, time.Now)

	// 6. Démarrage
	if cfg.Runtime == "lambda" {
		slog.Info("📡 Serving Lambda invocations", "table", cfg.TableName)
		lambda.NewHandler(handler).Start()
		return
	}

	serveHTTP(cfg, handler)
}

func serveHTTP(cfg config.Config, handler *api.Handler) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpserver.NewMux(handler),
	}

	go func() {
		slog.Info("📡 Blog listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("👋 Server exited")
}
