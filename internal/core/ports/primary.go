package ports

import (
	"context"

	"github.com/kerri-knier/blog/internal/core/domain"
)

// PostStore est le seul écrivain et la seule autorité sur les identifiants.
type PostStore interface {
	Write(ctx context.Context, text string) (*domain.Post, error)
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetByMonth(ctx context.Context, month string) ([]*domain.Post, error)
	DeleteByID(ctx context.Context, id string) (*domain.Post, error)
}

// RecentPosts agrège les N posts les plus récents, du plus récent au plus ancien.
type RecentPosts interface {
	ListRecent(ctx context.Context) ([]*domain.Post, error)
}

// StoreLoader lie un PostStore à une collection nommée, une fois par invocation.
type StoreLoader interface {
	Load(ctx context.Context, name string) (PostStore, error)
}
