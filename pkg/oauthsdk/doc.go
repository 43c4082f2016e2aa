/*
Package oauthsdk is the client SDK companion games use to integrate with the
SaltoPlay OAuth provider, and the home of the wire types and OAuth2 error
values the provider itself writes.

# Authorization code flow

	client := oauthsdk.NewSDKClient("https://play.example.com")

	pkce, _ := oauthsdk.GeneratePKCEChallenge()
	url := client.BuildAuthorizeURL(clientID, redirectURI, state, []string{"user:read"}, pkce)
	// Redirect the player's browser to url, then on the callback:

	code, gotState, err := oauthsdk.ParseAuthorizationCallback(callbackURL)
	tokens, err := client.ExchangeAuthorizationCode(ctx, clientID, clientSecret, code, redirectURI, pkce.Verifier)

	info, err := client.GetUserInfo(ctx, clientID, tokens.AccessToken)

Access tokens last an hour. Use RefreshGrant with the refresh token to get a
new pair; the old refresh token stops working once rotated.

# Errors

Failed calls return *OAuth2Error carrying the HTTP status and the RFC 6749
error code:

	var oerr *oauthsdk.OAuth2Error
	if errors.As(err, &oerr) && oerr.Code == oauthsdk.ErrorCodeInvalidGrant {
		// code already used or expired, restart the flow
	}
*/
package oauthsdk
