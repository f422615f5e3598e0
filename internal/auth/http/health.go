package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/ridebook/pkg/authsdk"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readyTimeout bounds each dependency check.
const readyTimeout = 2 * time.Second

// LivezHandler godoc
//
//	@Summary		Liveness check
//	@Description	Returns 200 while the process is serving requests, with uptime and build version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthBody("ok", startTime, version, nil))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Checks the account store and, when limits are kept in Redis, the cache.
//	@Description	Returns 503 with the failing check when a dependency is unreachable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := &authsdk.HealthChecks{Database: pingStatus(ctx, db)}
		if cache != nil {
			checks.Cache = pingStatus(ctx, cache)
		}

		status, code := "ok", http.StatusOK
		if checks.Database != "ok" || (cache != nil && checks.Cache != "ok") {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.NoCache(w)
		httpx.WriteJSON(w, code, healthBody(status, startTime, version, checks))
	}
}

func pingStatus(ctx context.Context, p Pinger) string {
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func healthBody(status string, startTime time.Time, version string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Version: version,
		Checks:  checks,
	}
}
