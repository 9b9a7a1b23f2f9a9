// Package bootstrap regroupe l'initialisation partagée par les binaires :
// logger, tracing, connexion au store et au broker.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/kerri-knier/blog/config"
	"github.com/kerri-knier/blog/internal/adapters/secondary/eventbroker"
	"github.com/kerri-knier/blog/internal/adapters/secondary/repository"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// Backend est un store physique capable de lier et de créer des collections.
type Backend interface {
	ports.Backend
	ports.Provisioner
}

func InitLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// InitTracer retourne nil, nil quand aucun endpoint OTLP n'est configuré.
func InitTracer(ctx context.Context, cfg config.Config, service string) (*sdktrace.TracerProvider, error) {
	if cfg.OtelEndpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(service),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// OpenBackend ouvre la connexion au store choisi. La connexion est partagée
// entre invocations ; la liaison à la collection (Load) ne l'est pas.
func OpenBackend(ctx context.Context, cfg config.Config) (Backend, func(), error) {
	switch cfg.StoreDriver {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoURL != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoURL) // DynamoDB Local
			}
		})
		slog.Info("✅ DynamoDB client ready", "region", cfg.AWSRegion)
		return repository.NewDynamoBackend(client), func() {}, nil

	case "postgres":
		dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
		if err != nil {
			return nil, nil, fmt.Errorf("parse db config: %w", err)
		}
		// Instrumentation SQL
		dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

		pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		slog.Info("✅ Connected to Postgres")
		return repository.NewPostgresBackend(pool), pool.Close, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("instrument redis: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		slog.Info("✅ Connected to Redis")
		return repository.NewRedisBackend(rdb), func() { _ = rdb.Close() }, nil

	case "sqlite":
		b, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		slog.Info("✅ SQLite opened", "path", cfg.SQLitePath)
		return b, func() { _ = b.Close() }, nil

	case "memory":
		b := repository.NewMemoryBackend()
		// Rien ne survit au processus : on crée la collection tout de suite.
		if err := b.Provision(ctx, cfg.TableName); err != nil {
			return nil, nil, err
		}
		return b, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
}

// OpenPublisher retourne un publisher NATS, ou un publisher vide si NATS_URL est vide.
func OpenPublisher(cfg config.Config) (ports.EventPublisher, func(), error) {
	if cfg.NatsUrl == "" {
		return eventbroker.NoopPublisher{}, func() {}, nil
	}
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	slog.Info("✅ Connected to NATS")
	return eventbroker.NewNatsPublisher(nc), nc.Close, nil
}
