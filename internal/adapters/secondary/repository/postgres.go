package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// PostgresBackend partage le pool ; chaque Load vérifie que la table existe.
type PostgresBackend struct {
	db *pgxpool.Pool
}

func NewPostgresBackend(db *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context, name string) (ports.Table, error) {
	var reg *string
	// to_regclass applique les règles de casse : on lui passe le nom quoté créé par Provision.
	ident := pgx.Identifier{name}.Sanitize()
	if err := b.db.QueryRow(ctx, `SELECT to_regclass($1)::text`, ident).Scan(&reg); err != nil {
		return nil, unavailable(err, "load")
	}
	if reg == nil {
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q does not exist", name)
	}
	return &PostgresTable{db: b.db, table: ident}, nil
}

// Provision crée la table et l'index secondaire sur month. created est stocké
// en nanosecondes Unix : TIMESTAMPTZ s'arrête à la microseconde.
func (b *PostgresBackend) Provision(ctx context.Context, name string) error {
	table := pgx.Identifier{name}.Sanitize()
	index := pgx.Identifier{name + "_month_idx"}.Sanitize()
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id      TEXT PRIMARY KEY,
			created BIGINT NOT NULL,
			month   TEXT NOT NULL,
			text    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %s ON %s (month);
	`, table, index, table)

	if _, err := b.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("provision %s: %w", name, err)
	}
	return nil
}

type PostgresTable struct {
	db    *pgxpool.Pool
	table string
}

func (r *PostgresTable) Put(ctx context.Context, post *domain.Post) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, created, month, text)
		VALUES (@id, @created, @month, @text)
	`, r.table)

	args := pgx.NamedArgs{
		"id":      post.ID,
		"created": post.Created.UnixNano(),
		"month":   post.Month,
		"text":    post.Text,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return unavailable(err, "put")
	}
	return nil
}

func (r *PostgresTable) Get(ctx context.Context, id string) (*domain.Post, error) {
	q := fmt.Sprintf(`SELECT id, created, month, text FROM %s WHERE id = $1`, r.table)
	return r.scanPost(r.db.QueryRow(ctx, q, id), id)
}

func (r *PostgresTable) QueryMonth(ctx context.Context, month string) ([]*domain.Post, error) {
	q := fmt.Sprintf(`SELECT id, created, month, text FROM %s WHERE month = $1`, r.table)

	rows, err := r.db.Query(ctx, q, month)
	if err != nil {
		return nil, unavailable(err, "query month")
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := r.scanPost(rows, "")
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err, "query month")
	}
	return posts, nil
}

// Delete supprime et renvoie l'ancien enregistrement en une seule requête.
func (r *PostgresTable) Delete(ctx context.Context, id string) (*domain.Post, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING id, created, month, text`, r.table)
	return r.scanPost(r.db.QueryRow(ctx, q, id), id)
}

func (r *PostgresTable) scanPost(row pgx.Row, id string) (*domain.Post, error) {
	var (
		p       domain.Post
		created int64
	)
	if err := row.Scan(&p.ID, &created, &p.Month, &p.Text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id) // Traduction technique -> Domaine
		}
		return nil, unavailable(err, "scan")
	}
	p.Created = time.Unix(0, created).UTC()
	return &p, nil
}
