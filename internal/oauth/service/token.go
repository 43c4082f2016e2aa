package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/idx"
	"github.com/saltoplay/platform/pkg/otelx"
	"github.com/saltoplay/platform/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Token type hints accepted by Revoke (RFC 7009 section 2.1).
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// TokenService implements the token endpoint grants, revocation and
// bearer token validation.
type TokenService struct {
	Store        store.Store
	Applications *ApplicationService

	// Cache fronts access token lookups. Nil disables caching.
	Cache cache.TokenCache

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CodeExchangeRequest is an authorization_code grant.
type CodeExchangeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// RefreshRequest is a refresh_token grant. Scopes may only narrow the
// original grant.
type RefreshRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scopes       []string
}

// RevokeRequest is an RFC 7009 revocation request.
type RevokeRequest struct {
	ClientID      string
	ClientSecret  string
	Token         string
	TokenTypeHint string
}

// ExchangeAuthorizationCode redeems an authorization code for a token pair.
//
// The code is consumed with a single delete inside a transaction, so of
// any number of concurrent redemptions exactly one can succeed. An expired
// code stays consumed. A code presented with the wrong client, redirect
// URI or verifier is restored by rolling back, so the legitimate holder can
// still redeem it. Every failure after client authentication is
// ErrInvalidGrant.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, req CodeExchangeRequest) (*domain.TokenPair, error) {
	ctx, span := otelx.Tracer(tracerName).Start(ctx, "TokenService.ExchangeAuthorizationCode")
	defer span.End()
	span.SetAttributes(attribute.String("oauth.client_id", req.ClientID))

	log := slogx.FromContext(ctx)

	app, err := s.Applications.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if req.Code == "" || req.RedirectURI == "" {
		return nil, fmt.Errorf("%w: code and redirect_uri are required", ErrInvalidRequest)
	}

	var (
		pair    *domain.TokenPair
		expired bool
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		code, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(req.Code))
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		if err != nil {
			return fmt.Errorf("consume authorization code: %w", err)
		}

		if code.Expired(now) {
			// Commit the delete; the code is spent either way.
			expired = true
			return nil
		}
		if code.ClientID != app.ID || code.RedirectURI != req.RedirectURI {
			log.Warn("authorization code presented with mismatched binding", "client_id", app.ID)
			return ErrInvalidGrant
		}
		if !app.IsConfidential() && code.CodeChallenge == "" {
			return ErrInvalidGrant
		}
		if !cryptox.VerifyPKCE(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier) {
			log.Warn("pkce verification failed", "client_id", app.ID)
			return ErrInvalidGrant
		}

		pair, err = s.issue(ctx, tx, app.ID, code.UserID, code.Scopes, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrInvalidGrant
	}

	log.Info("authorization code redeemed", "client_id", app.ID, "scope", pair.Scope)
	return pair, nil
}

// ExchangeRefreshToken rotates a refresh token: the presented token is
// revoked and a fresh pair is issued with the same or narrower scopes.
func (s *TokenService) ExchangeRefreshToken(ctx context.Context, req RefreshRequest) (*domain.TokenPair, error) {
	ctx, span := otelx.Tracer(tracerName).Start(ctx, "TokenService.ExchangeRefreshToken")
	defer span.End()
	span.SetAttributes(attribute.String("oauth.client_id", req.ClientID))

	app, err := s.Applications.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", ErrInvalidRequest)
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(req.RefreshToken))
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		if err != nil {
			return fmt.Errorf("get refresh token: %w", err)
		}
		if rt.ClientID != app.ID || !rt.Usable(now) {
			return ErrInvalidGrant
		}

		scopes := rt.Scopes
		if len(req.Scopes) > 0 {
			if bad := domain.UnknownScopes(req.Scopes, rt.Scopes); len(bad) > 0 {
				return &InvalidScopeError{Scopes: bad}
			}
			scopes = req.Scopes
		}

		// Only one concurrent rotation gets to revoke the token.
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return fmt.Errorf("revoke refresh token: %w", err)
		}

		pair, err = s.issue(ctx, tx, app.ID, rt.UserID, scopes, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("refresh token rotated", "client_id", app.ID, "scope", pair.Scope)
	return pair, nil
}

// Revoke invalidates a refresh or access token held by the authenticated
// client. Revoking a refresh token also drops the access tokens issued with
// it. Unknown tokens succeed silently; a token owned by another client is
// refused with ErrInvalidGrant.
func (s *TokenService) Revoke(ctx context.Context, req RevokeRequest) error {
	log := slogx.FromContext(ctx)

	app, err := s.Applications.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return err
	}
	if req.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}

	hash := cryptox.FingerprintToken(req.Token)
	var dropped []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		revokers := []func() (bool, error){
			func() (bool, error) { return revokeRefresh(ctx, tx, app.ID, hash, &dropped) },
			func() (bool, error) { return revokeAccess(ctx, tx, app.ID, hash, &dropped) },
		}
		if req.TokenTypeHint == TokenTypeHintAccessToken {
			slices.Reverse(revokers)
		}
		for _, revoke := range revokers {
			found, err := revoke()
			if err != nil || found {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.forget(ctx, dropped...)
	if len(dropped) > 0 {
		log.Info("token revoked", "client_id", app.ID, "access_tokens", len(dropped))
	}
	return nil
}

func revokeRefresh(ctx context.Context, tx store.Tx, clientID, hash string, dropped *[]string) (bool, error) {
	rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get refresh token: %w", err)
	}
	if rt.ClientID != clientID {
		return true, ErrInvalidGrant
	}

	if err := tx.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, time.Now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return true, fmt.Errorf("revoke refresh token: %w", err)
	}
	hashes, err := tx.AccessTokens().DeleteAccessTokensByRefreshTokenID(ctx, rt.ID)
	if err != nil {
		return true, fmt.Errorf("delete access tokens: %w", err)
	}
	*dropped = append(*dropped, hashes...)
	return true, nil
}

func revokeAccess(ctx context.Context, tx store.Tx, clientID, hash string, dropped *[]string) (bool, error) {
	at, err := tx.AccessTokens().GetAccessTokenByHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get access token: %w", err)
	}
	if at.ClientID != clientID {
		return true, ErrInvalidGrant
	}

	if _, err := tx.AccessTokens().DeleteAccessTokenByHash(ctx, hash); err != nil && !errors.Is(err, store.ErrNotFound) {
		return true, fmt.Errorf("delete access token: %w", err)
	}
	*dropped = append(*dropped, hash)
	return true, nil
}

// ValidateAccessToken resolves a bearer token to the principal it was
// issued for. Missing and expired tokens are ErrInvalidToken.
func (s *TokenService) ValidateAccessToken(ctx context.Context, token string) (domain.OAuthPrincipal, error) {
	ctx, span := otelx.Tracer(tracerName).Start(ctx, "TokenService.ValidateAccessToken")
	defer span.End()

	log := slogx.FromContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return domain.OAuthPrincipal{}, ErrInvalidToken
	}
	hash := cryptox.FingerprintToken(token)

	at, err := s.cache().GetAccessToken(ctx, hash)
	span.SetAttributes(attribute.Bool("oauth.cache_hit", err == nil))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("token cache read failed", "error", err)
		}

		at, err = s.Store.AccessTokens().GetAccessTokenByHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return domain.OAuthPrincipal{}, ErrInvalidToken
		}
		if err != nil {
			return domain.OAuthPrincipal{}, fmt.Errorf("get access token: %w", err)
		}

		if err := s.fill(ctx, at); err != nil {
			return domain.OAuthPrincipal{}, err
		}
	}

	if at.Expired(time.Now()) {
		s.forget(ctx, hash)
		return domain.OAuthPrincipal{}, ErrInvalidToken
	}

	return domain.OAuthPrincipal{
		UserID:    at.UserID,
		ClientID:  at.ClientID,
		Scopes:    at.Scopes,
		ExpiresAt: at.ExpiresAt,
	}, nil
}

// issue mints and persists an access and refresh token pair within tx.
func (s *TokenService) issue(ctx context.Context, tx store.Tx, clientID, userID string, scopes []string, now time.Time) (*domain.TokenPair, error) {
	accessTTL := s.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := s.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	access, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		TokenHash: cryptox.FingerprintToken(refresh),
		ClientID:  clientID,
		UserID:    userID,
		Scopes:    scopes,
		ExpiresAt: now.Add(refreshTTL),
		CreatedAt: now,
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	at := domain.AccessToken{
		ID:             idx.NewAt(now).String(),
		TokenHash:      cryptox.FingerprintToken(access),
		ClientID:       clientID,
		UserID:         userID,
		Scopes:         scopes,
		RefreshTokenID: rt.ID,
		ExpiresAt:      now.Add(accessTTL),
		CreatedAt:      now,
	}
	if err := tx.AccessTokens().CreateAccessToken(ctx, at); err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL,
		Scope:        domain.JoinScopes(scopes),
	}, nil
}

func (s *TokenService) cache() cache.TokenCache {
	if s.Cache == nil {
		return cache.Noop{}
	}
	return s.Cache
}

// fill caches at, then reads its row again. A revoke or application delete
// that committed after the first read has already invalidated the cache, so
// an entry written after it is dropped here.
func (s *TokenService) fill(ctx context.Context, at domain.AccessToken) error {
	if s.Cache == nil {
		return nil
	}
	if err := s.Cache.SetAccessToken(ctx, at); err != nil {
		slogx.FromContext(ctx).Warn("token cache write failed", "error", err)
		return nil
	}

	_, err := s.Store.AccessTokens().GetAccessTokenByHash(ctx, at.TokenHash)
	if err == nil {
		return nil
	}
	s.forget(ctx, at.TokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	return fmt.Errorf("get access token: %w", err)
}

func (s *TokenService) forget(ctx context.Context, hashes ...string) {
	forgetAccessTokens(ctx, s.Cache, hashes...)
}

// forgetAccessTokens drops hashes from c. A nil cache is a no-op.
func forgetAccessTokens(ctx context.Context, c cache.TokenCache, hashes ...string) {
	if c == nil || len(hashes) == 0 {
		return
	}
	if err := c.DeleteAccessTokens(ctx, hashes...); err != nil {
		slogx.FromContext(ctx).Warn("token cache invalidation failed", "error", err)
	}
}
