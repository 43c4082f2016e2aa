package domain

import "time"

// AuthorizationCode is a single-use grant minted when a user approves an
// application. Only the fingerprint of the code is stored.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

func (c AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
