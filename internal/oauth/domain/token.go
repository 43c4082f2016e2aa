package domain

import "time"

// TokenPair is what the token endpoint hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
	Scope        string        // space-delimited
}

// AccessToken is the stored record of an opaque bearer token.
type AccessToken struct {
	ID             string
	TokenHash      string // base64url SHA-256 of the token
	ClientID       string
	UserID         string
	Scopes         []string
	RefreshTokenID string // the refresh token issued alongside, if any
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshToken is the stored record of an opaque refresh token.
type RefreshToken struct {
	ID        string
	TokenHash string
	ClientID  string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token is unrevoked and unexpired at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
