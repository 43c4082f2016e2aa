package domain

import (
	"slices"
	"strings"
)

// Scopes a user can grant an application.
const (
	// ScopeUserRead exposes username, display name and avatar.
	ScopeUserRead = "user:read"
	// ScopeUserEmail exposes the email address.
	ScopeUserEmail = "user:email"
)

// DefaultAllowedScopes is the grantable set unless configured otherwise.
var DefaultAllowedScopes = []string{ScopeUserRead, ScopeUserEmail}

// ParseScopes splits a space-delimited scope string, dropping duplicates
// and keeping first-seen order.
func ParseScopes(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// UnknownScopes returns the members of requested missing from allowed.
func UnknownScopes(requested, allowed []string) []string {
	var bad []string
	for _, s := range requested {
		if !slices.Contains(allowed, s) {
			bad = append(bad, s)
		}
	}
	return bad
}
