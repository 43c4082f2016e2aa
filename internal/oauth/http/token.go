package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/oauthsdk"
	"github.com/saltoplay/platform/pkg/slogx"
)

// TokenHandler serves POST /oauth/token.
// Accepts application/x-www-form-urlencoded per RFC 6749.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token endpoint
//	@Description	Exchanges an authorization code, or rotates a refresh token, for an opaque access token and refresh token.
//	@Description	Confidential clients authenticate with client_secret or HTTP Basic; public clients send client_id and a PKCE code_verifier.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at the authorize step (authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"PKCE verifier, required when a challenge was sent"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			scope			formData	string					false	"Narrower scope for the refresh_token grant"
//	@Param			client_id		formData	string					false	"Client id, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string					false	"Client secret for confidential clients"
//	@Success		200				{object}	oauthsdk.TokenResponse
//	@Failure		400				{object}	oauthsdk.ErrorResponse	"invalid_request, invalid_grant, invalid_scope, unsupported_grant_type"
//	@Failure		401				{object}	oauthsdk.ErrorResponse	"invalid_client"
//	@Failure		500				{object}	oauthsdk.ErrorResponse	"server_error"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !httpx.IsFormRequest(r) {
		oauthsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauthsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID, clientSecret, err := clientCredentials(r)
	if err != nil {
		oauthsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	var pair *domain.TokenPair
	switch grantType := r.PostForm.Get("grant_type"); grantType {
	case "authorization_code":
		pair, err = h.TokenService.ExchangeAuthorizationCode(r.Context(), service.CodeExchangeRequest{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Code:         r.PostForm.Get("code"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
		})
	case "refresh_token":
		pair, err = h.TokenService.ExchangeRefreshToken(r.Context(), service.RefreshRequest{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: r.PostForm.Get("refresh_token"),
			Scopes:       domain.ParseScopes(r.PostForm.Get("scope")),
		})
	case "":
		oauthsdk.ErrInvalidRequest.WithDescription("grant_type is required").WriteError(w)
		return
	default:
		oauthsdk.ErrUnsupportedGrantType.WriteError(w)
		return
	}
	if err != nil {
		writeClientError(w, r, err, "token request failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, oauthsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        pair.Scope,
	})
}

// clientCredentials reads client authentication from HTTP Basic
// (RFC 6749 section 2.3.1) or the form body. Using both is an error.
func clientCredentials(r *http.Request) (id, secret string, err error) {
	formID := strings.TrimSpace(r.PostForm.Get("client_id"))
	formSecret := r.PostForm.Get("client_secret")

	user, pass, ok := r.BasicAuth()
	if !ok {
		return formID, formSecret, nil
	}
	if formSecret != "" {
		return "", "", errors.New("client credentials sent more than once")
	}

	if id, err = url.QueryUnescape(user); err != nil {
		return "", "", errors.New("malformed basic credentials")
	}
	if secret, err = url.QueryUnescape(pass); err != nil {
		return "", "", errors.New("malformed basic credentials")
	}
	if formID != "" && formID != id {
		return "", "", errors.New("client_id does not match basic credentials")
	}
	return id, secret, nil
}

// writeClientError maps service errors from client-authenticated endpoints
// onto OAuth2 error responses.
func writeClientError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidClient):
		if _, _, basic := r.BasicAuth(); basic {
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
		}
		oauthsdk.ErrInvalidClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		oauthsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		oauthsdk.ErrInvalidScope.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		desc := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
		oauthsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error(msg, "error", err)
		oauthsdk.ErrServerError.WriteError(w)
	}
}
