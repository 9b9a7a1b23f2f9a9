package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// RedisBackend stocke chaque post dans un hash et indexe les ids par mois dans un set.
//
//	{name}:collection     marqueur d'existence
//	{name}:post:{id}      hash id/created/month/text
//	{name}:month:{YYYY-MM} set des ids
type RedisBackend struct {
	client redis.UniversalClient
}

func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func collectionKey(name string) string { return fmt.Sprintf("%s:collection", name) }

func (b *RedisBackend) Load(ctx context.Context, name string) (ports.Table, error) {
	n, err := b.client.Exists(ctx, collectionKey(name)).Result()
	if err != nil {
		return nil, unavailable(err, "load")
	}
	if n == 0 {
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q does not exist", name)
	}
	return &RedisTable{client: b.client, name: name}, nil
}

func (b *RedisBackend) Provision(ctx context.Context, name string) error {
	if err := b.client.SetNX(ctx, collectionKey(name), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("provision %s: %w", name, err)
	}
	return nil
}

type RedisTable struct {
	client redis.UniversalClient
	name   string
}

func (r *RedisTable) postKey(id string) string     { return fmt.Sprintf("%s:post:%s", r.name, id) }
func (r *RedisTable) monthKey(month string) string { return fmt.Sprintf("%s:month:%s", r.name, month) }

// Put écrit le hash et l'index dans un MULTI/EXEC : les deux chemins restent cohérents.
func (r *RedisTable) Put(ctx context.Context, post *domain.Post) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.postKey(post.ID),
			"id", post.ID,
			"created", post.Created.UTC().Format(time.RFC3339Nano),
			"month", post.Month,
			"text", post.Text,
		)
		pipe.SAdd(ctx, r.monthKey(post.Month), post.ID)
		return nil
	})
	if err != nil {
		return unavailable(err, "put")
	}
	return nil
}

func (r *RedisTable) Get(ctx context.Context, id string) (*domain.Post, error) {
	fields, err := r.client.HGetAll(ctx, r.postKey(id)).Result()
	if err != nil {
		return nil, unavailable(err, "get")
	}
	if len(fields) == 0 {
		return nil, notFound(id)
	}
	return fromHash(fields)
}

func (r *RedisTable) QueryMonth(ctx context.Context, month string) ([]*domain.Post, error) {
	ids, err := r.client.SMembers(ctx, r.monthKey(month)).Result()
	if err != nil {
		return nil, unavailable(err, "query month")
	}
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	// Un seul aller-retour pour hydrater tout le mois
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.postKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err, "query month")
	}

	posts := make([]*domain.Post, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // supprimé entre SMEMBERS et HGETALL : omission tolérée
		}
		p, err := fromHash(fields)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Delete utilise WATCH : si le post change pendant la transaction, on échoue sans retry.
func (r *RedisTable) Delete(ctx context.Context, id string) (*domain.Post, error) {
	key := r.postKey(id)
	var post *domain.Post

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return notFound(id)
		}
		if post, err = fromHash(fields); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.monthKey(post.Month), id)
			return nil
		})
		return err
	}, key)

	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, unavailable(err, "delete")
	}
	return post, nil
}

func fromHash(fields map[string]string) (*domain.Post, error) {
	created, err := time.Parse(time.RFC3339Nano, fields["created"])
	if err != nil {
		return nil, unavailable(err, "parse created")
	}
	return &domain.Post{
		ID:      fields["id"],
		Created: created.UTC(),
		Month:   fields["month"],
		Text:    fields["text"],
	}, nil
}
