// Package cache keeps recently validated access tokens close to the
// user-info endpoint. The store remains the source of truth: a miss or a
// cache failure always falls back to it.
package cache

import (
	"context"
	"errors"

	"github.com/saltoplay/platform/internal/oauth/domain"
)

var ErrMiss = errors.New("cache: miss")

// TokenCache caches access token records by token hash.
type TokenCache interface {
	GetAccessToken(ctx context.Context, hash string) (domain.AccessToken, error)
	SetAccessToken(ctx context.Context, t domain.AccessToken) error
	DeleteAccessTokens(ctx context.Context, hashes ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Noop is used when no cache is configured. Every lookup misses.
type Noop struct{}

func (Noop) GetAccessToken(context.Context, string) (domain.AccessToken, error) {
	return domain.AccessToken{}, ErrMiss
}
func (Noop) SetAccessToken(context.Context, domain.AccessToken) error { return nil }
func (Noop) DeleteAccessTokens(context.Context, ...string) error     { return nil }
func (Noop) Ping(context.Context) error                              { return nil }
func (Noop) Close() error                                            { return nil }
