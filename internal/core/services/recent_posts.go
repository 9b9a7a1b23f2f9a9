package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

const (
	PageSize       = 10
	LookbackMonths = 12 // Les posts plus anciens sont invisibles dans le listing
)

type RecentPostsService struct {
	store ports.PostStore
	now   func() time.Time
}

func NewRecentPosts(store ports.PostStore, now func() time.Time) *RecentPostsService {
	if now == nil {
		now = time.Now
	}
	return &RecentPostsService{store: store, now: now}
}

// ListRecent parcourt les partitions mensuelles à rebours (M, M-1, ...) et
// s'arrête dès que la page est pleine. Lectures séquentielles, aucune mutation.
func (s *RecentPostsService) ListRecent(ctx context.Context) ([]*domain.Post, error) {
	ctx, span := tracer.Start(ctx, "RecentPosts.ListRecent")
	defer span.End()

	acc := make([]*domain.Post, 0, PageSize)
	scanned := 0
	for _, month := range domain.Months(s.now(), LookbackMonths) {
		batch, err := s.store.GetByMonth(ctx, month)
		if err != nil {
			return nil, err
		}
		scanned++

		SortNewestFirst(batch)
		acc = append(acc, batch...)
		if len(acc) >= PageSize {
			break
		}
	}

	if len(acc) > PageSize {
		acc = acc[:PageSize]
	}
	span.SetAttributes(attribute.Int("months.scanned", scanned), attribute.Int("post.count", len(acc)))
	return acc, nil
}

// SortNewestFirst trie par date décroissante, égalités départagées par id croissant.
func SortNewestFirst(posts []*domain.Post) {
	slices.SortFunc(posts, func(a, b *domain.Post) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
