// Package sqlcore holds the database/sql repositories shared by the sqlite
// and postgres drivers. Queries are written with ? placeholders and rebound
// per dialect.
package sqlcore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/saltoplay/platform/internal/oauth/store"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string

	// NumberedParams rewrites ? placeholders to $1, $2, ...
	NumberedParams bool

	// IsUniqueViolation reports whether err is a unique or primary key
	// constraint failure.
	IsUniqueViolation func(error) bool
}

// Store implements everything in store.Store except ApplyMigrations, which
// the drivers add.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the handle for migration drivers.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, q: newQueries(tx, s.dialect)}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Safe to call even after commit.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) q() *queries { return newQueries(s.db, s.dialect) }

func (s *Store) Applications() store.Applications { return &applicationsRepo{q: s.q()} }
func (s *Store) Users() store.Users               { return &usersRepo{q: s.q()} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes {
	return &authorizationCodesRepo{q: s.q()}
}
func (s *Store) AccessTokens() store.AccessTokens   { return &accessTokensRepo{q: s.q()} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: s.q()} }

type txStore struct {
	tx *sql.Tx
	q  *queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Applications() store.Applications { return &applicationsRepo{q: t.q} }
func (t *txStore) Users() store.Users               { return &usersRepo{q: t.q} }
func (t *txStore) AuthorizationCodes() store.AuthorizationCodes {
	return &authorizationCodesRepo{q: t.q}
}
func (t *txStore) AccessTokens() store.AccessTokens   { return &accessTokensRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
