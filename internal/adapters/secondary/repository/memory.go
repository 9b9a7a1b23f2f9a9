package repository

import (
	"context"
	"sync"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// MemoryBackend garde les collections en RAM (dev local et tests).
type MemoryBackend struct {
	mu     sync.RWMutex
	tables map[string]*MemoryTable
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]*MemoryTable)}
}

func (b *MemoryBackend) Provision(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tables[name]; !ok {
		b.tables[name] = &MemoryTable{
			byID:    make(map[string]domain.Post),
			byMonth: make(map[string]map[string]struct{}),
		}
	}
	return nil
}

func (b *MemoryBackend) Load(_ context.Context, name string) (ports.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tables[name]
	if !ok {
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q does not exist", name)
	}
	return t, nil
}

// MemoryTable indexe chaque post par id et par mois, sous le même verrou :
// les deux chemins d'accès voient toujours le même ensemble.
type MemoryTable struct {
	mu      sync.RWMutex
	byID    map[string]domain.Post
	byMonth map[string]map[string]struct{}
}

func (t *MemoryTable) Put(_ context.Context, post *domain.Post) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byID[post.ID] = *post
	ids, ok := t.byMonth[post.Month]
	if !ok {
		ids = make(map[string]struct{})
		t.byMonth[post.Month] = ids
	}
	ids[post.ID] = struct{}{}
	return nil
}

func (t *MemoryTable) Get(_ context.Context, id string) (*domain.Post, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	return &p, nil
}

func (t *MemoryTable) QueryMonth(_ context.Context, month string) ([]*domain.Post, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := t.byMonth[month]
	posts := make([]*domain.Post, 0, len(ids))
	for id := range ids {
		p := t.byID[id]
		posts = append(posts, &p)
	}
	return posts, nil
}

func (t *MemoryTable) Delete(_ context.Context, id string) (*domain.Post, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	delete(t.byID, id)
	if ids := t.byMonth[p.Month]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(t.byMonth, p.Month)
		}
	}
	return &p, nil
}

func notFound(id string) error {
	return domain.NewError(domain.KindNotFound, "post %s not found", id)
}

func unavailable(err error, op string) error {
	return domain.Wrap(domain.KindStoreUnavailable, err, "%s failed", op)
}
