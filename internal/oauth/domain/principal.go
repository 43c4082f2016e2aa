package domain

import (
	"slices"
	"time"
)

// Principal is whoever a request acts for. It is either a SessionUser,
// signed in to the platform itself, or an OAuthPrincipal, an application
// acting for a user through an access token.
type Principal interface {
	Subject() string
	principal()
}

// SessionUser comes from a verified platform session.
type SessionUser struct {
	UserID    string
	Name      string
	ExpiresAt time.Time
}

func (s SessionUser) Subject() string { return s.UserID }
func (SessionUser) principal()        {}

// OAuthPrincipal comes from a validated access token.
type OAuthPrincipal struct {
	UserID    string
	ClientID  string
	Scopes    []string
	ExpiresAt time.Time
}

func (p OAuthPrincipal) Subject() string { return p.UserID }
func (OAuthPrincipal) principal()        {}

func (p OAuthPrincipal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}
