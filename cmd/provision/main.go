// Command provision crée la collection de posts pour le store configuré,
// pour que la vérification faite à chaque invocation réussisse.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/kerri-knier/blog/config"
	"github.com/kerri-knier/blog/internal/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	bootstrap.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend, closeBackend, err := bootstrap.OpenBackend(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	if err := backend.Provision(ctx, cfg.TableName); err != nil {
		slog.Error("Provisioning failed", "table", cfg.TableName, "error", err)
		os.Exit(1)
	}

	// Même vérification que celle faite par la fonction
	if _, err := backend.Load(ctx, cfg.TableName); err != nil {
		slog.Error("Collection still unavailable", "table", cfg.TableName, "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Collection ready", "driver", cfg.StoreDriver, "table", cfg.TableName)
}
