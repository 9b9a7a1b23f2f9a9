package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kerri-knier/blog/internal/adapters/secondary/repository"
	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

type recordingPublisher struct {
	created []string
	deleted []string
	err     error
}

func (p *recordingPublisher) PublishPostCreated(_ context.Context, post *domain.Post) error {
	p.created = append(p.created, post.ID)
	return p.err
}

func (p *recordingPublisher) PublishPostDeleted(_ context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	return p.err
}

// failingTable simule un store qui rejette tout.
type failingTable struct{ err error }

func (f failingTable) Put(context.Context, *domain.Post) error { return f.err }
func (f failingTable) Get(context.Context, string) (*domain.Post, error) {
	return nil, f.err
}
func (f failingTable) QueryMonth(context.Context, string) ([]*domain.Post, error) {
	return nil, f.err
}
func (f failingTable) Delete(context.Context, string) (*domain.Post, error) {
	return nil, f.err
}

type backendFunc func(ctx context.Context, name string) (ports.Table, error)

func (f backendFunc) Load(ctx context.Context, name string) (ports.Table, error) { return f(ctx, name) }

func newMemoryStore(t *testing.T, pub ports.EventPublisher, now func() time.Time) (ports.PostStore, ports.Table) {
	t.Helper()
	ctx := context.Background()
	b := repository.NewMemoryBackend()
	if err := b.Provision(ctx, "posts"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	table, err := b.Load(ctx, "posts")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return NewPostStore(table, pub, now), table
}

func TestPostStore_WriteThenGet(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	now := time.Date(2024, time.May, 4, 10, 0, 0, 0, time.UTC)
	store, _ := newMemoryStore(t, pub, func() time.Time { return now })

	for _, text := range []string{"first post", "{not json", "  padded  "} {
		written, err := store.Write(ctx, text)
		if err != nil {
			t.Fatalf("Write(%q): %v", text, err)
		}
		if written.Month != "2024-05" || !written.Created.Equal(now) {
			t.Fatalf("written=%+v", written)
		}

		got, err := store.GetByID(ctx, written.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.ID != written.ID || got.Text != text {
			t.Fatalf("got=%+v want id=%s text=%q", got, written.ID, text)
		}
	}

	if len(pub.created) != 3 {
		t.Fatalf("published=%d want=3", len(pub.created))
	}
}

func TestPostStore_GetByMonth(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, time.May, 4, 10, 0, 0, 0, time.UTC)
	store, _ := newMemoryStore(t, &recordingPublisher{}, func() time.Time { return current })

	a, _ := store.Write(ctx, "may 1")
	b, _ := store.Write(ctx, "may 2")
	current = current.AddDate(0, 1, 0)
	_, _ = store.Write(ctx, "june")

	posts, err := store.GetByMonth(ctx, "2024-05")
	if err != nil {
		t.Fatalf("GetByMonth: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len=%d want=2", len(posts))
	}
	seen := map[string]bool{}
	for _, p := range posts {
		seen[p.ID] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("missing posts: %v", seen)
	}

	empty, err := store.GetByMonth(ctx, "1999-01")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty month: posts=%v err=%v", empty, err)
	}
}

func TestPostStore_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store, _ := newMemoryStore(t, pub, nil)

	p, err := store.Write(ctx, "to delete")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	deleted, err := store.DeleteByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if deleted.Text != "to delete" {
		t.Fatalf("deleted=%+v", deleted)
	}

	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID after delete err=%v want NotFound", err)
	}
	if _, err := store.DeleteByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second DeleteByID err=%v want NotFound", err)
	}
	if len(pub.deleted) != 1 {
		t.Fatalf("deleted events=%d want=1", len(pub.deleted))
	}
}

func TestPostStore_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t, &recordingPublisher{err: errors.New("nats down")}, nil)

	p, err := store.Write(ctx, "still saved")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := store.DeleteByID(ctx, p.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
}

func TestPostStore_BackendErrorsBecomeStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("throughput exceeded")
	store := NewPostStore(failingTable{err: cause}, &recordingPublisher{}, nil)

	if _, err := store.Write(ctx, "x"); !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("Write err=%v", err)
	}
	if _, err := store.GetByID(ctx, "x"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("GetByID err=%v", err)
	}
	if _, err := store.GetByMonth(ctx, "2024-01"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("GetByMonth err=%v", err)
	}
	if _, err := store.DeleteByID(ctx, "x"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("DeleteByID err=%v", err)
	}
}

func TestPostStore_WriteEmptyText(t *testing.T) {
	store, table := newMemoryStore(t, &recordingPublisher{}, nil)
	if _, err := store.Write(context.Background(), " "); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("err=%v want BadRequest", err)
	}
	posts, _ := table.QueryMonth(context.Background(), domain.MonthOf(time.Now()))
	if len(posts) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(posts))
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	b := repository.NewMemoryBackend()
	loader := NewLoader(b, &recordingPublisher{}, nil)
	if _, err := loader.Load(ctx, "posts"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("missing collection err=%v want StoreUnavailable", err)
	}

	if err := b.Provision(ctx, "posts"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	store, err := loader.Load(ctx, "posts")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := store.Write(ctx, "bound"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Une erreur brute du driver est aussi escaladée en StoreUnavailable
	cause := errors.New("dial tcp: connection refused")
	loader = NewLoader(backendFunc(func(context.Context, string) (ports.Table, error) {
		return nil, cause
	}), &recordingPublisher{}, nil)
	if _, err := loader.Load(ctx, "posts"); !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("driver failure err=%v", err)
	}
}
