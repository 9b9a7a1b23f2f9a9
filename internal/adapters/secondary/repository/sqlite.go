package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// SQLiteBackend sert au développement local : un fichier, aucune dépendance cgo.
type SQLiteBackend struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Load(ctx context.Context, name string) (ports.Table, error) {
	var found string
	err := b.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q does not exist", name)
	}
	if err != nil {
		return nil, unavailable(err, "load")
	}
	return &SQLiteTable{db: b.db, table: quoteIdent(name)}, nil
}

func (b *SQLiteBackend) Provision(ctx context.Context, name string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id      TEXT PRIMARY KEY,
			created TEXT NOT NULL,
			month   TEXT NOT NULL,
			text    TEXT NOT NULL
		);`, quoteIdent(name)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (month);`, quoteIdent(name+"_month_idx"), quoteIdent(name)),
	}
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("provision %s: %w", name, err)
		}
	}
	return nil
}

type SQLiteTable struct {
	db    *sql.DB
	table string
}

func (r *SQLiteTable) Put(ctx context.Context, post *domain.Post) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, created, month, text) VALUES (?, ?, ?, ?)`, r.table)
	_, err := r.db.ExecContext(ctx, q, post.ID, post.Created.UTC().Format(time.RFC3339Nano), post.Month, post.Text)
	if err != nil {
		return unavailable(err, "put")
	}
	return nil
}

func (r *SQLiteTable) Get(ctx context.Context, id string) (*domain.Post, error) {
	q := fmt.Sprintf(`SELECT id, created, month, text FROM %s WHERE id = ?`, r.table)
	return r.scanPost(r.db.QueryRowContext(ctx, q, id), id)
}

func (r *SQLiteTable) QueryMonth(ctx context.Context, month string) ([]*domain.Post, error) {
	q := fmt.Sprintf(`SELECT id, created, month, text FROM %s WHERE month = ?`, r.table)
	rows, err := r.db.QueryContext(ctx, q, month)
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

// Delete lit puis supprime dans une transaction pour renvoyer l'ancien enregistrement.
func (r *SQLiteTable) Delete(ctx context.Context, id string) (*domain.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err, "delete")
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`SELECT id, created, month, text FROM %s WHERE id = ?`, r.table)
	post, err := r.scanPost(tx.QueryRowContext(ctx, q, id), id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table), id); err != nil {
		return nil, unavailable(err, "delete")
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err, "delete")
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteTable) scanPost(row rowScanner, id string) (*domain.Post, error) {
	var (
		p       domain.Post
		created string
	)
	if err := row.Scan(&p.ID, &created, &p.Month, &p.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, unavailable(err, "scan")
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, unavailable(err, "parse created")
	}
	p.Created = t.UTC()
	return &p, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
