package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kerri-knier/blog/internal/core/domain"
)

// Ces tests tournent contre de vrais serveurs :
//
//	BLOG_TEST_REDIS_ADDR=localhost:6379 BLOG_TEST_DB_URL=postgres://... go test ./...
func liveBackends(t *testing.T) map[string]backend {
	t.Helper()
	ctx := context.Background()
	out := map[string]backend{}

	if addr := os.Getenv("BLOG_TEST_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			t.Fatalf("redis ping: %v", err)
		}
		t.Cleanup(func() { _ = client.Close() })
		out["redis"] = NewRedisBackend(client)
	}

	if url := os.Getenv("BLOG_TEST_DB_URL"); url != "" {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			t.Fatalf("pgxpool: %v", err)
		}
		t.Cleanup(pool.Close)
		out["postgres"] = NewPostgresBackend(pool)
	}

	if len(out) == 0 {
		t.Skip("BLOG_TEST_REDIS_ADDR and BLOG_TEST_DB_URL not set")
	}
	return out
}

func TestLiveBackends_Contract(t *testing.T) {
	ctx := context.Background()
	// Précision sous la microseconde : created doit revenir à l'identique
	created := time.Date(2024, time.May, 4, 10, 0, 0, 123456789, time.UTC)

	for name, b := range liveBackends(t) {
		t.Run(name, func(t *testing.T) {
			// Nom en casse mixte : Load doit retrouver la collection créée par Provision
			collection := "Posts_" + strings.ReplaceAll(uuid.NewString(), "-", "")

			if _, err := b.Load(ctx, collection); !errors.Is(err, domain.ErrStoreUnavailable) {
				t.Fatalf("Load before Provision err=%v", err)
			}
			if err := b.Provision(ctx, collection); err != nil {
				t.Fatalf("Provision: %v", err)
			}
			table, err := b.Load(ctx, collection)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			p := mkPost("a", created)
			if err := table.Put(ctx, p); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := table.Get(ctx, "a")
			if err != nil || !got.Created.Equal(p.Created) || got.Text != p.Text {
				t.Fatalf("Get=%+v err=%v want created=%v", got, err, p.Created)
			}
			posts, err := table.QueryMonth(ctx, "2024-05")
			if err != nil || len(posts) != 1 || !posts[0].Created.Equal(p.Created) {
				t.Fatalf("QueryMonth=%v err=%v", posts, err)
			}
			deleted, err := table.Delete(ctx, "a")
			if err != nil || !deleted.Created.Equal(p.Created) {
				t.Fatalf("Delete=%+v err=%v", deleted, err)
			}
			if _, err := table.Delete(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("second Delete err=%v", err)
			}
			if posts, err := table.QueryMonth(ctx, "2024-05"); err != nil || len(posts) != 0 {
				t.Fatalf("QueryMonth after delete=%v err=%v", posts, err)
			}
		})
	}
}
