package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
	"github.com/kerri-knier/blog/internal/monitoring"
)

var tracer = otel.Tracer("blog/services")

type postStore struct {
	table     ports.Table
	publisher ports.EventPublisher
	now       func() time.Time
}

func NewPostStore(table ports.Table, pub ports.EventPublisher, now func() time.Time) ports.PostStore {
	if now == nil {
		now = time.Now
	}
	return &postStore{table: table, publisher: pub, now: now}
}

func (s *postStore) Write(ctx context.Context, text string) (*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "PostStore.Write")
	defer span.End()

	post, err := domain.NewPost(text, s.now())
	if err != nil {
		return nil, s.fail(span, "write", err)
	}
	span.SetAttributes(attribute.String("post.id", post.ID), attribute.String("post.month", post.Month))

	// 1. Sauvegarde (Source of Truth). Pas de retry ici : c'est la politique de l'appelant.
	if err := s.table.Put(ctx, post); err != nil {
		return nil, s.fail(span, "write", err)
	}
	monitoring.ObserveStoreOperation("write", nil)

	// 2. Publication (best effort) : la donnée est déjà sauvée.
	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.WarnContext(ctx, "Failed to publish post.created", "post_id", post.ID, "error", err)
	}

	return post, nil
}

func (s *postStore) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "PostStore.GetByID", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	post, err := s.table.Get(ctx, id)
	if err != nil {
		return nil, s.fail(span, "get", err)
	}
	monitoring.ObserveStoreOperation("get", nil)
	return post, nil
}

func (s *postStore) GetByMonth(ctx context.Context, month string) ([]*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "PostStore.GetByMonth", trace.WithAttributes(attribute.String("post.month", month)))
	defer span.End()

	posts, err := s.table.QueryMonth(ctx, month)
	if err != nil {
		return nil, s.fail(span, "query_month", err)
	}
	monitoring.ObserveStoreOperation("query_month", nil)
	span.SetAttributes(attribute.Int("post.count", len(posts)))
	return posts, nil
}

func (s *postStore) DeleteByID(ctx context.Context, id string) (*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "PostStore.DeleteByID", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	post, err := s.table.Delete(ctx, id)
	if err != nil {
		return nil, s.fail(span, "delete", err)
	}
	monitoring.ObserveStoreOperation("delete", nil)

	if err := s.publisher.PublishPostDeleted(ctx, post.ID); err != nil {
		slog.WarnContext(ctx, "Failed to publish post.deleted", "post_id", post.ID, "error", err)
	}
	return post, nil
}

// fail normalise l'erreur : toute erreur qui n'est pas déjà du domaine
// devient StoreUnavailable.
func (s *postStore) fail(span trace.Span, op string, err error) error {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.Wrap(domain.KindStoreUnavailable, err, "%s failed", op)
	}
	if derr.Kind == domain.KindStoreUnavailable {
		span.RecordError(err)
		span.SetStatus(codes.Error, derr.Message)
	}
	monitoring.ObserveStoreOperation(op, derr)
	return derr
}

// Loader lie le PostStore à une collection à chaque invocation (aucun cache).
type Loader struct {
	backend   ports.Backend
	publisher ports.EventPublisher
	now       func() time.Time
}

func NewLoader(backend ports.Backend, pub ports.EventPublisher, now func() time.Time) *Loader {
	return &Loader{backend: backend, publisher: pub, now: now}
}

func (l *Loader) Load(ctx context.Context, name string) (ports.PostStore, error) {
	ctx, span := tracer.Start(ctx, "PostStore.Load", trace.WithAttributes(attribute.String("store.collection", name)))
	defer span.End()

	table, err := l.backend.Load(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		monitoring.ObserveStoreOperation("load", err)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, domain.Wrap(domain.KindStoreUnavailable, err, "collection %q unavailable", name)
	}
	monitoring.ObserveStoreOperation("load", nil)
	return NewPostStore(table, l.publisher, l.now), nil
}
