package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// tokenPrefixLen is the indexed lookup key: the first characters of the
// token select the row, bcrypt verifies the rest.
const tokenPrefixLen = 8

// TokenStore abstracts the admin-token table for testability.
type TokenStore interface {
	LookupByPrefix(ctx context.Context, prefix string) (*tokenRow, error)
}

type tokenRow struct {
	TokenHash string
	Label     string
	Revoked   bool
}

// sqlTokenStore is the real implementation using *sql.DB (pgx driver).
type sqlTokenStore struct {
	db *sql.DB
}

func (s *sqlTokenStore) LookupByPrefix(ctx context.Context, prefix string) (*tokenRow, error) {
	row := &tokenRow{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, label, revoked
		 FROM admin_tokens
		 WHERE token_prefix = $1`,
		prefix,
	).Scan(&row.TokenHash, &row.Label, &row.Revoked)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("sqlTokenStore.LookupByPrefix: %w", err)
	}
	return row, nil
}

// PostgresAuthorizer validates admin tokens against the admin_tokens table.
// Successful verifications are cached with stale-while-revalidate so
// repeated admin calls skip the DB and bcrypt work.
type PostgresAuthorizer struct {
	store  TokenStore
	cache  *tokenCache
	logger *zap.Logger
}

// PostgresAuthorizerConfig configures the PostgresAuthorizer.
type PostgresAuthorizerConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration // default 30s
	Logger   *zap.Logger
}

func NewPostgresAuthorizer(cfg PostgresAuthorizerConfig) *PostgresAuthorizer {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &PostgresAuthorizer{
		store:  &sqlTokenStore{db: cfg.DB},
		cache:  newTokenCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresAuthorizerWithStore injects a store for tests.
func newPostgresAuthorizerWithStore(store TokenStore, cache *tokenCache, logger *zap.Logger) *PostgresAuthorizer {
	return &PostgresAuthorizer{store: store, cache: cache, logger: logger}
}

// Authorize verifies the token. Cache hits (fresh or stale) pass
// immediately; stale hits trigger one background re-verification so a
// revoked token stops working within a TTL.
func (a *PostgresAuthorizer) Authorize(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if len(token) < tokenPrefixLen {
		return ErrInvalidToken
	}

	hit, needsRefresh := a.cache.get(token)
	if hit {
		if needsRefresh {
			go a.backgroundRefresh(token)
		}
		return nil
	}

	if err := a.verify(ctx, token); err != nil {
		return err
	}
	a.cache.set(token)
	return nil
}

func (a *PostgresAuthorizer) backgroundRefresh(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.verify(ctx, token); err != nil {
		a.logger.Warn("admin token re-verification failed, evicting",
			zap.Error(err),
		)
		a.cache.delete(token)
		return
	}
	a.cache.set(token)
}

func (a *PostgresAuthorizer) verify(ctx context.Context, token string) error {
	row, err := a.store.LookupByPrefix(ctx, token[:tokenPrefixLen])
	if err != nil {
		return err
	}
	if row.Revoked {
		a.logger.Warn("revoked admin token used",
			zap.String("label", row.Label),
		)
		return ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.TokenHash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}
