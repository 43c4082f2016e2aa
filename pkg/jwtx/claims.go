package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are minted by the platform web app when a user signs in. The
// provider only ever verifies them.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Name is the user's display name, informational only.
	Name string `json:"name,omitempty"`
}

// NewSessionClaims builds session claims for subject valid for ttl.
func NewSessionClaims(subject, name string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
}

// ConsentClaims carry an authorization request from the consent page back to
// the approval POST. The subject is the user who saw the page and the
// audience is the requesting client, so a ticket cannot be replayed for a
// different user or application.
type ConsentClaims struct {
	jwt.RegisteredClaims

	RedirectURI         string `json:"redirect_uri"`
	Scope               string `json:"scope,omitempty"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// NewConsentClaims builds a consent ticket for userID approving clientID.
func NewConsentClaims(issuer, userID, clientID string, ttl time.Duration, now time.Time) ConsentClaims {
	return ConsentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
