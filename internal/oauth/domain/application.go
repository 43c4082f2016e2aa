package domain

import (
	"errors"
	"net"
	"net/url"
	"time"
)

// Application is a companion game registered to use the provider.
type Application struct {
	ID          string
	Name        string
	SecretHash  string // argon2id PHC string, empty for public clients
	RedirectURI string // the single allowed redirect URI, compared exactly
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsConfidential reports whether the application authenticates with a
// secret. Public applications must use PKCE instead.
func (a Application) IsConfidential() bool {
	return a.SecretHash != ""
}

var ErrRedirectURIFormat = errors.New("redirect uri must be an absolute https url (http only on loopback) without a fragment")

// ValidateRedirectURI checks the shape of a URI an application registers.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" || u.User != nil {
		return ErrRedirectURIFormat
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if host := u.Hostname(); host == "localhost" {
			return nil
		} else if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
	}
	return ErrRedirectURIFormat
}
