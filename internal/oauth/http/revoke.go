package http

import (
	"net/http"

	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/oauthsdk"
)

// RevokeHandler serves POST /oauth/revoke (RFC 7009). Unknown tokens are
// answered with 200 like revoked ones, so the endpoint cannot be used to
// probe for valid tokens.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Token revocation
//	@Description	Revokes a refresh token, together with the access tokens issued alongside it, or a single access token.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string					true	"The token to revoke"
//	@Param			token_type_hint	formData	string					false	"Which kind of token it is"	Enums(access_token, refresh_token)
//	@Param			client_id		formData	string					false	"Client id, unless sent with HTTP Basic"
//	@Param			client_secret	formData	string					false	"Client secret for confidential clients"
//	@Success		200				"Revoked, or already invalid"
//	@Failure		400				{object}	oauthsdk.ErrorResponse	"invalid_request, invalid_grant"
//	@Failure		401				{object}	oauthsdk.ErrorResponse	"invalid_client"
//	@Router			/oauth/revoke [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	err = h.TokenService.Revoke(r.Context(), service.RevokeRequest{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
	})
	if err != nil {
		writeClientError(w, r, err, "revoke request failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
