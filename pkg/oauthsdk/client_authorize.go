package oauthsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/saltoplay/platform/pkg/cryptox"
)

// PKCEChallenge holds a PKCE verifier and the challenge derived from it.
// The verifier stays with the game backend until the code exchange.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCEChallenge creates a fresh S256 verifier/challenge pair.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: cryptox.S256Challenge(verifier),
		Method:    cryptox.PKCEMethodS256,
	}, nil
}

// BuildAuthorizeURL constructs the URL to send the player's browser to.
// scopes and pkce are optional; public clients must pass pkce.
func (c *SDKClient) BuildAuthorizeURL(
	clientID, redirectURI, state string,
	scopes []string,
	pkce *PKCEChallenge,
) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)

	if state != "" {
		params.Set("state", state)
	}

	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.Method)
	}

	return c.url("/oauth/authorize?" + params.Encode())
}

// ParseAuthorizationCallback extracts the code and state from the URL the
// provider redirected back to. An error redirect is returned as
// *OAuth2Error.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		return "", "", &OAuth2Error{
			StatusCode:  http.StatusFound,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback missing authorization code")
	}

	return code, query.Get("state"), nil
}

// ExchangeAuthorizationCode redeems code for an access and refresh token.
// clientSecret is empty for public clients; codeVerifier is empty when the
// authorize request carried no PKCE challenge.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}

	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, data)
}
