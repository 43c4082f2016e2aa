package store

import (
	"context"
	"errors"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off it so the same code runs against the
// database handle or inside a transaction.
type Store interface {
	Applications() Applications
	Users() Users
	AuthorizationCodes() AuthorizationCodes
	AccessTokens() AccessTokens
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Inside fn only
	// use tx: sqlite runs on a single connection and would deadlock.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Applications interface {
	GetApplicationByID(ctx context.Context, id string) (domain.Application, error)

	// ListApplications returns all applications, newest first.
	ListApplications(ctx context.Context) ([]domain.Application, error)

	CreateApplication(ctx context.Context, a domain.Application) error
	UpdateApplicationSecretHash(ctx context.Context, id, secretHash string, now time.Time) error
	UpdateApplicationRedirectURI(ctx context.Context, id, redirectURI string, now time.Time) error

	// DeleteApplication cascades to codes and tokens (per schema).
	DeleteApplication(ctx context.Context, id string) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. ErrAlreadyExists on a taken username.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserProfile writes display name, email and avatar.
	UpdateUserProfile(ctx context.Context, u domain.User) error

	// UpdateUserTOTPSecret sets the secret, or clears it when nil.
	UpdateUserTOTPSecret(ctx context.Context, id string, secret *string, now time.Time) error
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCode deletes the code with the given hash and
	// returns it. Exactly one caller can consume a code; the rest get
	// ErrNotFound.
	ConsumeAuthorizationCode(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type AccessTokens interface {
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// DeleteAccessTokenByHash returns the deleted token, or ErrNotFound.
	DeleteAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// DeleteAccessTokensByRefreshTokenID removes the access tokens issued
	// alongside a refresh token and returns their hashes.
	DeleteAccessTokensByRefreshTokenID(ctx context.Context, refreshTokenID string) ([]string, error)

	// DeleteAccessTokensByApplicationID removes every access token issued to
	// an application and returns their hashes.
	DeleteAccessTokensByApplicationID(ctx context.Context, applicationID string) ([]string, error)

	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at on a token that is not yet revoked.
	// ErrNotFound when no such unrevoked token exists, which is how a
	// concurrent rotation loses.
	RevokeRefreshToken(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredRefreshTokens removes expired and revoked tokens.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
