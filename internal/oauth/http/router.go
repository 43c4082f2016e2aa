package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/slogx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/saltoplay/platform/api/oauth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       httpx.RateLimits

	store store.Store
	cache cache.TokenCache

	Sessions *SessionResolver
	Consent  *ConsentTickets
	LoginURL string

	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	UserInfoService  *service.UserInfoService
}

// NewRouter wires the global middleware. tc may be nil when no token cache
// is configured.
func NewRouter(
	buildVersion string,
	st store.Store,
	tc cache.TokenCache,
	limits httpx.RateLimits,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		limits:       limits,
		store:        st,
		cache:        tc,
	}

	// otelhttp first so the request logger sees the trace id.
	r.middlewares = []httpx.Middleware{
		otelhttp.NewMiddleware("oauth",
			otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
				return req.Method + " " + req.URL.Path
			}),
		),
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain. ApplyRoutes must have been called.
//
//	@title						SaltoPlay OAuth Provider API
//	@version					0.1.0
//	@description				OAuth 2.0 authorization server that lets SaltoPlay companion games sign users in with their platform account.
//	@description
//	@description				Access and refresh tokens are opaque. Codes are single use and bound to the client, redirect URI and PKCE challenge.
//
//	@contact.name				SaltoPlay Platform Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerOAuth() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Sessions:         r.Sessions,
		Consent:          r.Consent,
		LoginURL:         r.LoginURL,
	}

	// GET /authorize - lenient, it only renders the consent page
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	// POST /authorize - strict, approval may carry a TOTP code
	r.Mux.Handle("POST /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /token - strict per IP and client
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(r.limits.Strict, "client_id"),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	userInfoHandler := &UserInfoHandler{
		TokenService:    r.TokenService,
		UserInfoService: r.UserInfoService,
	}
	r.Mux.Handle("GET /oauth/userinfo",
		httpx.Chain(userInfoHandler,
			httpx.RateLimitByIPAndHeader(r.limits.Lenient, ClientIDHeader),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
}
