package httpx

import (
	"net"
	"net/http"
	"strings"
)

// BearerToken extracts the credential from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WriteBearerChallenge sets an RFC 6750 WWW-Authenticate header.
func WriteBearerChallenge(w http.ResponseWriter, code, description string) {
	v := `Bearer realm="oauth"`
	if code != "" {
		v += `, error="` + code + `"`
	}
	if description != "" {
		v += `, error_description="` + description + `"`
	}
	w.Header().Set("WWW-Authenticate", v)
}

// RemoteIP returns the client address, honouring X-Forwarded-For and
// X-Real-IP when a proxy set them.
func RemoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
