package apikey

import (
	"context"
	"database/sql"

	"root/internal/store"
)

// Repository stores credential hashes, one row per member.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores hash as the member's only credential, replacing any previous one.
func (r *Repository) Upsert(ctx context.Context, memberID int32, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_key (member_id, key_hash, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (member_id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			updated_at = NOW()
	`, memberID, hash)
	return store.MapError(err)
}

// Hash returns the stored hash for a member or store.ErrNotFound.
func (r *Repository) Hash(ctx context.Context, memberID int32) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT key_hash FROM api_key WHERE member_id = $1`, memberID).Scan(&hash)
	if err != nil {
		return "", store.MapError(err)
	}
	return hash, nil
}

// Exists reports whether the member has been issued a credential.
func (r *Repository) Exists(ctx context.Context, memberID int32) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM api_key WHERE member_id = $1)`, memberID).Scan(&exists)
	if err != nil {
		return false, store.MapError(err)
	}
	return exists, nil
}
