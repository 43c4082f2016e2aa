package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/idx"
	"github.com/saltoplay/platform/pkg/slogx"
)

// ApplicationService manages the registry of companion games allowed to
// request user consent.
type ApplicationService struct {
	Store  store.Store
	Hasher *cryptox.SecretHasher

	// Cache is told about access tokens removed with an application.
	// Nil disables it.
	Cache cache.TokenCache
}

// RegisterApplication creates a new application and returns it with the
// plaintext secret. The secret is only available here; it is empty for
// public applications.
func (s *ApplicationService) RegisterApplication(ctx context.Context, name, redirectURI string, confidential bool) (domain.Application, string, error) {
	log := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Application{}, "", fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if err := domain.ValidateRedirectURI(redirectURI); err != nil {
		return domain.Application{}, "", fmt.Errorf("%w: %v", ErrInvalidRedirect, err)
	}

	now := time.Now().UTC()
	app := domain.Application{
		ID:          idx.NewAt(now).String(),
		Name:        name,
		RedirectURI: redirectURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var secret string
	if confidential {
		var err error
		secret, app.SecretHash, err = s.newSecret()
		if err != nil {
			return domain.Application{}, "", err
		}
	}

	if err := s.Store.Applications().CreateApplication(ctx, app); err != nil {
		return domain.Application{}, "", fmt.Errorf("create application: %w", err)
	}

	log.Info("application registered", "client_id", app.ID, "name", app.Name, "confidential", confidential)
	return app, secret, nil
}

func (s *ApplicationService) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	app, err := s.Store.Applications().GetApplicationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Application{}, ErrNotFound
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context) ([]domain.Application, error) {
	return s.Store.Applications().ListApplications(ctx)
}

// RotateSecret replaces the secret of a confidential application. Public
// applications have no secret to rotate.
func (s *ApplicationService) RotateSecret(ctx context.Context, id string) (string, error) {
	app, err := s.GetApplication(ctx, id)
	if err != nil {
		return "", err
	}
	if !app.IsConfidential() {
		return "", fmt.Errorf("%w: public applications have no secret", ErrInvalidRequest)
	}

	secret, hash, err := s.newSecret()
	if err != nil {
		return "", err
	}
	if err := s.Store.Applications().UpdateApplicationSecretHash(ctx, id, hash, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("update secret: %w", err)
	}

	slogx.FromContext(ctx).Info("application secret rotated", "client_id", id)
	return secret, nil
}

func (s *ApplicationService) UpdateRedirectURI(ctx context.Context, id, redirectURI string) error {
	if err := domain.ValidateRedirectURI(redirectURI); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRedirect, err)
	}

	err := s.Store.Applications().UpdateApplicationRedirectURI(ctx, id, redirectURI, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update redirect uri: %w", err)
	}

	slogx.FromContext(ctx).Info("application redirect uri updated", "client_id", id, "redirect_uri", redirectURI)
	return nil
}

// DeleteApplication removes the application together with its codes and
// tokens. Its access tokens are also dropped from the token cache.
func (s *ApplicationService) DeleteApplication(ctx context.Context, id string) error {
	var hashes []string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		hashes, err = tx.AccessTokens().DeleteAccessTokensByApplicationID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete access tokens: %w", err)
		}
		return tx.Applications().DeleteApplication(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	forgetAccessTokens(ctx, s.Cache, hashes...)
	slogx.FromContext(ctx).Info("application deleted", "client_id", id, "access_tokens", len(hashes))
	return nil
}

// Authenticate checks client credentials presented at the token and
// revocation endpoints. Confidential applications need their secret.
// Public applications are identified by id alone and must not send one.
func (s *ApplicationService) Authenticate(ctx context.Context, clientID, clientSecret string) (domain.Application, error) {
	if strings.TrimSpace(clientID) == "" {
		return domain.Application{}, ErrInvalidClient
	}

	app, err := s.Store.Applications().GetApplicationByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Application{}, ErrInvalidClient
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}

	if !app.IsConfidential() {
		if clientSecret != "" {
			return domain.Application{}, ErrInvalidClient
		}
		return app, nil
	}

	if clientSecret == "" || s.Hasher.Verify(clientSecret, app.SecretHash) != nil {
		slogx.FromContext(ctx).Warn("client authentication failed", "client_id", clientID)
		return domain.Application{}, ErrInvalidClient
	}
	return app, nil
}

func (s *ApplicationService) newSecret() (secret, hash string, err error) {
	secret, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}
	hash, err = s.Hasher.Hash(secret)
	if err != nil {
		return "", "", fmt.Errorf("hash secret: %w", err)
	}
	return secret, hash, nil
}
