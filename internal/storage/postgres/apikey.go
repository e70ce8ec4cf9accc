package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, name, key_hash, scopes
	FROM api_keys WHERE key_hash = $1 AND active`

	insertAPIKeySQL = `INSERT INTO api_keys (name, key_hash, scopes)
	VALUES ($1, $2, $3)
	RETURNING id`
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository stores API keys in PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active key. It returns auth.ErrKeyNotFound when none
// matches.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.Key, error) {
	var k auth.Key
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(&k.ID, &k.Name, &k.Hash, &k.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &k, nil
}

// Create stores a new active key.
func (r *APIKeyRepository) Create(ctx context.Context, name, hash string, scopes []string) (*auth.Key, error) {
	if scopes == nil {
		scopes = []string{}
	}
	k := auth.Key{Name: name, Hash: hash, Scopes: scopes}
	if err := r.pool.QueryRow(ctx, insertAPIKeySQL, name, hash, scopes).Scan(&k.ID); err != nil {
		return nil, fmt.Errorf("creating api key %q: %w", name, err)
	}
	return &k, nil
}
