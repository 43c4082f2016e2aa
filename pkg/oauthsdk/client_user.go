package oauthsdk

import (
	"context"
	"net/http"
)

// GetUserInfo fetches the profile fields accessToken's scopes allow.
func (c *SDKClient) GetUserInfo(ctx context.Context, clientID, accessToken string) (*UserInfoResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/oauth/userinfo", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
		"X-Client-ID":   clientID,
	})
	if err != nil {
		return nil, err
	}

	var info UserInfoResponse
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}

	return &info, nil
}
