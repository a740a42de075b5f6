package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stormlightlabs/filehist/internal/db"
)

// Registry is the lookup-or-create layer for namespaces, commits and column
// ids. Commit rows are unique per (namespace, hash) and never updated, which
// is what makes ingestion resumable: re-running over the same source finds
// every hash already present and writes nothing.
type Registry struct {
	store *db.Store
}

func NewRegistry(store *db.Store) *Registry {
	return &Registry{store: store}
}

// NamespaceID returns the id for a namespace name, creating it on first use.
func (r *Registry) NamespaceID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.store.DB().QueryRowxContext(ctx,
		`SELECT id FROM namespaces WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := r.store.DB().ExecContext(ctx,
		`INSERT INTO namespaces (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CommitID returns the id for a (namespace, hash) pair, inserting the commit
// on first sight. An existing row keeps its original commit_at.
func (r *Registry) CommitID(ctx context.Context, tx *sqlx.Tx, namespaceID int64, hash string, committedAt time.Time) (int64, error) {
	var id int64
	err := tx.QueryRowxContext(ctx,
		`SELECT id FROM commits WHERE namespace = ? AND hash = ?`,
		namespaceID, hash).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO commits (namespace, hash, commit_at) VALUES (?, ?, ?)`,
		namespaceID, hash, committedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CommitHashes returns every commit hash already recorded for a namespace.
// The ingestion driver excludes these from the revision stream.
func (r *Registry) CommitHashes(ctx context.Context, namespaceID int64) (map[string]struct{}, error) {
	rows, err := r.store.DB().QueryxContext(ctx,
		`SELECT hash FROM commits WHERE namespace = ?`, namespaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes[hash] = struct{}{}
	}
	return hashes, rows.Err()
}

// ColumnID returns the registry id for a column name within a namespace,
// creating it on first encounter. Callers cache the result in the run state.
func (r *Registry) ColumnID(ctx context.Context, tx *sqlx.Tx, namespaceID int64, name string) (int64, error) {
	var id int64
	err := tx.QueryRowxContext(ctx,
		`SELECT id FROM columns WHERE namespace = ? AND name = ?`,
		namespaceID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO columns (namespace, name) VALUES (?, ?)`, namespaceID, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
