package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/oauthsdk"
	"github.com/saltoplay/platform/pkg/slogx"
)

// ClientIDHeader names the application calling the user-info endpoint.
const ClientIDHeader = "X-Client-ID"

// UserInfoHandler serves GET /oauth/userinfo.
type UserInfoHandler struct {
	TokenService    *service.TokenService
	UserInfoService *service.UserInfoService
}

// ServeHTTP godoc
//
//	@Summary		User info
//	@Description	Returns the profile of the user the access token was issued for.
//	@Description	username, displayName and avatar need user:read; email needs user:email. Fields outside the granted scopes are omitted.
//	@Tags			OAuth2
//	@Produce		json
//	@Security		BearerAuth
//	@Param			X-Client-ID	header		string	true	"Client id the token was issued to"
//	@Success		200			{object}	oauthsdk.UserInfoResponse
//	@Failure		400			{object}	oauthsdk.ErrorResponse	"invalid_request: missing X-Client-ID"
//	@Failure		401			{object}	oauthsdk.ErrorResponse	"invalid_token"
//	@Router			/oauth/userinfo [get]
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clientID := strings.TrimSpace(r.Header.Get(ClientIDHeader))
	if clientID == "" {
		oauthsdk.ErrInvalidRequest.WithDescription("X-Client-ID header is required").WriteError(w)
		return
	}

	principal, err := h.TokenService.ValidateAccessToken(ctx, httpx.BearerToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info, err := h.UserInfoService.UserInfo(ctx, principal, clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, oauthsdk.UserInfoResponse{
		ID:          info.ID,
		Username:    info.Username,
		DisplayName: info.DisplayName,
		Avatar:      info.Avatar,
		Email:       info.Email,
	})
}

func (h *UserInfoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteBearerChallenge(w, oauthsdk.ErrorCodeInvalidToken, "")
		oauthsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		oauthsdk.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("userinfo request failed", "error", err)
		oauthsdk.ErrServerError.WriteError(w)
	}
}
