package ports

import (
	"context"

	"github.com/kerri-knier/blog/internal/core/domain"
)

// Table est une collection liée (après Load) : accès point par id, accès
// par plage sur month. Les erreurs retournées sont des erreurs du domaine.
type Table interface {
	Put(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	// QueryMonth retourne tous les posts de la partition, ordre non spécifié.
	QueryMonth(ctx context.Context, month string) ([]*domain.Post, error)
	// Delete supprime et retourne l'ancien enregistrement, ou domain.ErrNotFound.
	Delete(ctx context.Context, id string) (*domain.Post, error)
}

// Backend est la connexion au store physique (créée une fois au démarrage).
// Load vérifie l'existence de la collection à chaque invocation.
type Backend interface {
	Load(ctx context.Context, name string) (Table, error)
}

// Provisioner crée la collection si elle n'existe pas.
type Provisioner interface {
	Provision(ctx context.Context, name string) error
}

type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID string) error
}
