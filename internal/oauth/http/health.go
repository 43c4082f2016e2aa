package http

import (
	"net/http"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/oauthsdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	oauthsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, oauthsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database and, when configured, the token cache.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	oauthsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	oauthsdk.HealthResponse	"a dependency is down"
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, st store.Store, tc cache.TokenCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &oauthsdk.HealthChecks{Database: "ok", Cache: "disabled"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		// Cache failures are reported but do not fail readiness.
		if tc != nil {
			checks.Cache = "ok"
			if err := tc.Ping(r.Context()); err != nil {
				checks.Cache = "error: " + err.Error()
				if status == "ok" {
					status = "degraded"
				}
			}
		}

		httpx.WriteJSON(w, code, oauthsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
