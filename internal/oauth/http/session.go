package http

import (
	"net/http"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/jwtx"
	"github.com/saltoplay/platform/pkg/slogx"
)

// DefaultSessionCookie is the cookie the platform web app stores its
// session token in.
const DefaultSessionCookie = "salto_session"

// SessionResolver reads the platform session from a request.
type SessionResolver struct {
	Verifier   *jwtx.Verifier
	CookieName string
}

// Resolve returns the signed-in platform user, or nil when the request
// carries no valid session. A Bearer header takes precedence over the
// cookie.
func (s *SessionResolver) Resolve(r *http.Request) domain.Principal {
	token := httpx.BearerToken(r)
	if token == "" {
		name := s.CookieName
		if name == "" {
			name = DefaultSessionCookie
		}
		if c, err := r.Cookie(name); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil
	}

	var claims jwtx.SessionClaims
	if err := s.Verifier.Verify(token, &claims, ""); err != nil {
		slogx.FromContext(r.Context()).Debug("session token rejected", "error", err)
		return nil
	}
	if claims.Subject == "" {
		slogx.FromContext(r.Context()).Warn("session token has no subject")
		return nil
	}

	return domain.SessionUser{
		UserID:    claims.Subject,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}
