package http

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/oauthsdk"
	"github.com/saltoplay/platform/pkg/slogx"
)

//go:embed templates/*.html
var templateFS embed.FS

var consentPage = template.Must(template.ParseFS(templateFS, "templates/consent.html"))

var scopeDescriptions = map[string]string{
	domain.ScopeUserRead:  "See your username, display name and avatar",
	domain.ScopeUserEmail: "See your email address",
}

type consentView struct {
	AppName     string
	UserName    string
	Scopes      []string
	Ticket      string
	RequiresOTP bool
	Error       string
}

// AuthorizeHandler serves the consent screen and records the user's
// decision.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Sessions         *SessionResolver
	Consent          *ConsentTickets

	// LoginURL is where users without a platform session are sent. The
	// authorize URL is passed along as return_to. Empty means respond with
	// login_required instead.
	LoginURL string
}

// HandleGet godoc
//
//	@Summary		Authorization endpoint
//	@Description	Validates an authorization request and renders the consent screen for the signed-in platform user.
//	@Description	Requests with an unknown client or a redirect_uri that does not exactly match the registered one are answered with JSON and never redirected.
//	@Description	Later failures (invalid_scope, invalid_request) redirect to the registered URI with error, error_description and state.
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string					true	"Application client id"
//	@Param			redirect_uri			query		string					true	"Must equal the registered redirect URI"
//	@Param			scope					query		string					false	"Space-delimited scopes, defaults to user:read"	example(user:read user:email)
//	@Param			state					query		string					false	"Opaque value echoed back to the client"
//	@Param			code_challenge			query		string					false	"PKCE challenge, required for public clients"
//	@Param			code_challenge_method	query		string					false	"PKCE method"	default(S256)	Enums(S256, plain)
//	@Success		200						{string}	string					"Consent page"
//	@Success		302						{string}	string					"Redirect with error, or to the platform login page"
//	@Failure		400						{object}	oauthsdk.ErrorResponse	"invalid_request or unsupported_response_type"
//	@Failure		401						{object}	oauthsdk.ErrorResponse	"login_required"
//	@Failure		404						{object}	oauthsdk.ErrorResponse	"not_found"
//	@Router			/oauth/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := parseAuthorizeRequest(r.URL.Query())
	principal := h.Sessions.Resolve(r)

	preview, err := h.AuthorizeService.Preview(ctx, req, principal)
	if err != nil {
		h.writeError(w, r, req, err)
		return
	}

	h.renderConsent(w, r, preview, http.StatusOK, "")
}

// HandlePost godoc
//
//	@Summary		Consent decision
//	@Description	Approves or denies the request sealed in consent_ticket. Approval redirects to the client with code and state;
//	@Description	denial redirects with error=access_denied. Users with two-factor enabled must include otp_code to approve.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			consent_ticket	formData	string					true	"Ticket from the consent page"
//	@Param			decision		formData	string					true	"approve or deny"	Enums(approve, deny)
//	@Param			otp_code		formData	string					false	"Six digit TOTP code"
//	@Success		302				{string}	string					"Redirect to the client"
//	@Failure		400				{object}	oauthsdk.ErrorResponse	"invalid_request"
//	@Failure		401				{object}	oauthsdk.ErrorResponse	"login_required"
//	@Router			/oauth/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !httpx.IsFormRequest(r) {
		oauthsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		oauthsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	principal := h.Sessions.Resolve(r)
	if principal == nil {
		oauthsdk.ErrLoginRequired.WriteError(w)
		return
	}

	req, err := h.Consent.Open(r.PostForm.Get("consent_ticket"), principal.Subject())
	if err != nil {
		log.Warn("consent ticket rejected", "error", err)
		oauthsdk.ErrInvalidRequest.WithDescription("consent ticket is invalid or expired").WriteError(w)
		return
	}

	switch r.PostForm.Get("decision") {
	case "approve":
		res, err := h.AuthorizeService.Authorize(ctx, req, principal, r.PostForm.Get("otp_code"))
		switch {
		case errors.Is(err, service.ErrOTPRequired), errors.Is(err, service.ErrInvalidOTP):
			h.retryConsent(w, r, req, principal, "The two-factor code is missing or incorrect.")
		case err != nil:
			h.writeError(w, r, req, err)
		default:
			http.Redirect(w, r, res.RedirectURI, http.StatusFound)
		}

	case "deny":
		// The ticket was valid when issued; make sure the client still is.
		preview, err := h.AuthorizeService.Preview(ctx, req, principal)
		if err != nil {
			h.writeError(w, r, req, err)
			return
		}
		log.Info("consent denied", "client_id", preview.Application.ID, "user_id", preview.User.ID)
		h.redirectError(w, r, preview.RedirectURI, preview.State, oauthsdk.ErrAccessDenied)

	default:
		oauthsdk.ErrInvalidRequest.WithDescription("decision must be approve or deny").WriteError(w)
	}
}

func (h *AuthorizeHandler) retryConsent(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest, principal domain.Principal, msg string) {
	preview, err := h.AuthorizeService.Preview(r.Context(), req, principal)
	if err != nil {
		h.writeError(w, r, req, err)
		return
	}
	h.renderConsent(w, r, preview, http.StatusUnauthorized, msg)
}

func (h *AuthorizeHandler) renderConsent(w http.ResponseWriter, r *http.Request, p *service.AuthorizePreview, status int, errMsg string) {
	ticket, err := h.Consent.Issue(p)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to issue consent ticket", "error", err)
		oauthsdk.ErrServerError.WriteError(w)
		return
	}

	view := consentView{
		AppName:     p.Application.Name,
		UserName:    p.User.DisplayName,
		Ticket:      ticket,
		RequiresOTP: p.RequiresOTP,
		Error:       errMsg,
	}
	if view.UserName == "" {
		view.UserName = p.User.Username
	}
	for _, s := range p.Scopes {
		if d, ok := scopeDescriptions[s]; ok {
			s = d
		}
		view.Scopes = append(view.Scopes, s)
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
	w.WriteHeader(status)
	if err := consentPage.Execute(w, view); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render consent page", "error", err)
	}
}

// writeError answers with JSON until the redirect URI has been checked
// against the registration, and redirects to the client afterwards.
func (h *AuthorizeHandler) writeError(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrUnsupportedResponseType):
		oauthsdk.ErrUnsupportedResponseType.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		oauthsdk.ErrUnknownClient.WriteError(w)
	case errors.Is(err, service.ErrInvalidRedirect):
		log.Debug("authorize: redirect_uri mismatch", "client_id", req.ClientID, "redirect_uri", req.RedirectURI)
		oauthsdk.ErrInvalidRequest.WithDescription("redirect_uri does not match the registered uri").WriteError(w)
	case errors.Is(err, service.ErrLoginRequired):
		if h.LoginURL != "" && r.Method == http.MethodGet {
			h.redirectToLogin(w, r)
			return
		}
		oauthsdk.ErrLoginRequired.WriteError(w)
	case errors.Is(err, service.ErrInvalidScope):
		e := oauthsdk.ErrInvalidScope
		var scopeErr *service.InvalidScopeError
		if errors.As(err, &scopeErr) {
			e = e.WithDescription("unknown scope: " + strings.Join(scopeErr.Scopes, " "))
		}
		h.redirectError(w, r, req.RedirectURI, req.State, e)
	case errors.Is(err, service.ErrInvalidRequest):
		desc := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
		h.redirectError(w, r, req.RedirectURI, req.State, oauthsdk.ErrInvalidRequest.WithDescription(desc))
	default:
		log.Error("authorize request failed", "error", err)
		oauthsdk.ErrServerError.WriteError(w)
	}
}

func (h *AuthorizeHandler) redirectError(w http.ResponseWriter, r *http.Request, redirectURI, state string, e *oauthsdk.OAuth2Error) {
	target, err := service.ErrorRedirect(redirectURI, e.Code, e.Description, state)
	if err != nil {
		e.WriteError(w)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthorizeHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	login, err := url.Parse(h.LoginURL)
	if err != nil {
		oauthsdk.ErrLoginRequired.WriteError(w)
		return
	}
	q := login.Query()
	q.Set("return_to", r.URL.RequestURI())
	login.RawQuery = q.Encode()
	http.Redirect(w, r, login.String(), http.StatusFound)
}

func parseAuthorizeRequest(q url.Values) service.AuthorizeRequest {
	return service.AuthorizeRequest{
		ResponseType:        strings.TrimSpace(q.Get("response_type")),
		ClientID:            strings.TrimSpace(q.Get("client_id")),
		RedirectURI:         q.Get("redirect_uri"),
		Scopes:              domain.ParseScopes(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       strings.TrimSpace(q.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(q.Get("code_challenge_method")),
	}
}
