package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/idx"
	"github.com/saltoplay/platform/pkg/otelx"
	"github.com/saltoplay/platform/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/saltoplay/platform/internal/oauth/service"

// DefaultCodeTTL bounds how long an authorization code can be redeemed.
const DefaultCodeTTL = 10 * time.Minute

// AuthorizeService validates authorization requests and mints
// authorization codes once the user consents.
type AuthorizeService struct {
	Store store.Store

	// AllowedScopes is the grantable set. Nil means domain.DefaultAllowedScopes.
	AllowedScopes []string
	CodeTTL       time.Duration
}

// AuthorizeRequest is the query of an authorization request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizePreview is a validated request, ready to be shown to the user
// on the consent screen.
type AuthorizePreview struct {
	Application         domain.Application
	User                domain.User
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// RequiresOTP is set when the user has two-factor enrolled and must
	// confirm consent with a one-time code.
	RequiresOTP bool
}

// AuthorizeResult carries the minted code and the redirect that delivers it.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	State       string
	ExpiresAt   time.Time
}

// Preview validates req for principal without minting anything.
//
// Checks run in this order, each with its own error:
//
//   - response_type must be "code" (ErrUnsupportedResponseType)
//   - the client must exist (ErrNotFound)
//   - redirect_uri must equal the registered one exactly (ErrInvalidRedirect)
//   - every scope must be allowed (*InvalidScopeError)
//   - PKCE parameters must be well formed, and present for public
//     clients (ErrInvalidRequest)
//   - principal must be a platform session of a known user (ErrLoginRequired)
//
// An error after the redirect check means req.RedirectURI is the
// registered URI and can safely carry the error back to the client.
func (s *AuthorizeService) Preview(ctx context.Context, req AuthorizeRequest, principal domain.Principal) (*AuthorizePreview, error) {
	if strings.TrimSpace(req.ResponseType) != "code" {
		return nil, ErrUnsupportedResponseType
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, ErrNotFound
	}

	app, err := s.Store.Applications().GetApplicationByID(ctx, req.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	if req.RedirectURI != app.RedirectURI {
		return nil, ErrInvalidRedirect
	}

	scopes, err := s.resolveScopes(req.Scopes)
	if err != nil {
		return nil, err
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, app)
	if err != nil {
		return nil, err
	}

	session, ok := principal.(domain.SessionUser)
	if !ok || session.UserID == "" {
		return nil, ErrLoginRequired
	}
	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLoginRequired
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &AuthorizePreview{
		Application:         app,
		User:                user,
		RedirectURI:         app.RedirectURI,
		Scopes:              scopes,
		State:               req.State,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		RequiresOTP:         user.HasTOTP(),
	}, nil
}

// Authorize records the user's approval of req and mints a single-use
// authorization code bound to the client, redirect URI, scopes and PKCE
// challenge. Users with two-factor enrolled must pass otpCode
// (ErrOTPRequired, ErrInvalidOTP).
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest, principal domain.Principal, otpCode string) (*AuthorizeResult, error) {
	ctx, span := otelx.Tracer(tracerName).Start(ctx, "AuthorizeService.Authorize")
	defer span.End()

	log := slogx.FromContext(ctx)

	preview, err := s.Preview(ctx, req, principal)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("oauth.client_id", preview.Application.ID))

	if preview.RequiresOTP {
		otpCode = strings.TrimSpace(otpCode)
		if otpCode == "" {
			return nil, ErrOTPRequired
		}
		if !totp.Validate(otpCode, *preview.User.TOTPSecret) {
			log.Warn("consent rejected: invalid otp", "user_id", preview.User.ID, "client_id", preview.Application.ID)
			return nil, ErrInvalidOTP
		}
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	now := time.Now().UTC()
	record := domain.AuthorizationCode{
		ID:                  idx.NewAt(now).String(),
		CodeHash:            cryptox.FingerprintToken(code),
		ClientID:            preview.Application.ID,
		UserID:              preview.User.ID,
		RedirectURI:         preview.RedirectURI,
		Scopes:              preview.Scopes,
		CodeChallenge:       preview.CodeChallenge,
		CodeChallengeMethod: preview.CodeChallengeMethod,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, fmt.Errorf("create authorization code: %w", err)
	}

	params := url.Values{"code": {code}}
	if preview.State != "" {
		params.Set("state", preview.State)
	}
	redirect, err := appendQuery(preview.RedirectURI, params)
	if err != nil {
		return nil, err
	}

	log.Info("authorization code issued",
		"client_id", record.ClientID,
		"user_id", record.UserID,
		"scopes", domain.JoinScopes(record.Scopes),
		"pkce", record.CodeChallenge != "",
	)

	return &AuthorizeResult{
		Code:        code,
		RedirectURI: redirect,
		State:       preview.State,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// ErrorRedirect builds the redirect that reports an authorization error
// back to the client.
func ErrorRedirect(redirectURI, code, description, state string) (string, error) {
	params := url.Values{"error": {code}}
	if description != "" {
		params.Set("error_description", description)
	}
	if state != "" {
		params.Set("state", state)
	}
	return appendQuery(redirectURI, params)
}

func (s *AuthorizeService) resolveScopes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return []string{domain.ScopeUserRead}, nil
	}

	allowed := s.AllowedScopes
	if allowed == nil {
		allowed = domain.DefaultAllowedScopes
	}
	if bad := domain.UnknownScopes(requested, allowed); len(bad) > 0 {
		return nil, &InvalidScopeError{Scopes: bad}
	}
	return requested, nil
}

// validatePKCE normalises the challenge method. Public clients must send a
// challenge; confidential clients may omit it.
func validatePKCE(challenge, method string, app domain.Application) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		if strings.TrimSpace(method) != "" {
			return "", "", fmt.Errorf("%w: code_challenge_method without code_challenge", ErrInvalidRequest)
		}
		if !app.IsConfidential() {
			return "", "", fmt.Errorf("%w: code_challenge required for public clients", ErrInvalidRequest)
		}
		return "", "", nil
	}

	normalized, ok := cryptox.NormalizePKCEMethod(method)
	if !ok {
		return "", "", fmt.Errorf("%w: unsupported code_challenge_method", ErrInvalidRequest)
	}

	// RFC 7636 section 4.2
	if len(challenge) < 43 || len(challenge) > 128 {
		return "", "", fmt.Errorf("%w: code_challenge must be 43-128 characters", ErrInvalidRequest)
	}

	return challenge, normalized, nil
}

// appendQuery adds params to base, keeping any query it already has.
func appendQuery(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
