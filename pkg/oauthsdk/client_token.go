package oauthsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// RefreshGrant rotates refreshToken into a new token pair. scopes may only
// narrow what the refresh token was granted; nil keeps them all.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// RevokeToken revokes an access or refresh token (RFC 7009). hint is
// "access_token", "refresh_token" or empty.
func (c *SDKClient) RevokeToken(ctx context.Context, clientID, clientSecret, token, hint string) error {
	data := url.Values{
		"token":     {token},
		"client_id": {clientID},
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	if hint != "" {
		data.Set("token_type_hint", hint)
	}

	resp, err := c.postForm(ctx, "/oauth/revoke", data)
	if err != nil {
		return err
	}

	return decodeJSON(resp, nil, http.StatusOK)
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/oauth/token", data)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}
