package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/pkg/httpx"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"

	_ "github.com/aussiebroadwan/ridebook/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// FilesPath is where locally stored media is served.
const FilesPath = "/files/"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService  *service.AuthService
	TokenService *service.TokenService
	Metrics      *metrics.Metrics

	// Cache is checked by /readyz when OTP limits live in Redis.
	Cache Pinger

	// Files serves media blobs under FilesPath. Optional.
	Files http.Handler
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	for _, v := range domain.Variants {
		r.registerOTP(v)
		r.registerAccount(v)
	}
	r.registerAdmin()
	r.registerSystem()

	if r.Files != nil {
		r.Mux.Handle("GET "+FilesPath,
			httpx.Chain(http.StripPrefix(FilesPath[:len(FilesPath)-1], r.Files),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Ridebook Authentication Service API
//	@version		0.1.0
//	@description	Phone number OTP authentication for ridebook users, drivers and admins.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs whose audience is the account variant.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/ridebook
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
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies bearer tokens issued for variant v.
func (r *Router) authn(v domain.Variant) httpx.Middleware {
	return httpx.AuthnMiddleware(r.TokenService.Authenticator(v), authErrorWriter(v))
}

func (r *Router) registerOTP(v domain.Variant) {
	base := "/v1/" + v.PathSegment()
	h := &OTPHandler{AuthService: r.AuthService, Variant: v}

	// The service enforces the per-phone cooldown and window; these bound
	// how hard one client can hit a single number.
	r.Mux.Handle("POST "+base+"/otp/send",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			httpx.RateLimitByIPAndPhone(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST "+base+"/otp/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResend),
			httpx.RateLimitByIPAndPhone(httpx.StrictLimit),
		),
	)

	// POST /otp/verify - strict rate limit (code guessing)
	r.Mux.Handle("POST "+base+"/otp/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIPAndPhone(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST "+base+"/otp/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST "+base+"/otp/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(v),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccount(v domain.Variant) {
	base := "/v1/" + v.PathSegment()
	h := &AccountHandler{AuthService: r.AuthService, Variant: v}

	r.Mux.Handle("GET "+base+"/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn(v),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)

	// PATCH /me/phone consumes an OTP, so it gets the strict profile
	r.Mux.Handle("PATCH "+base+"/me/phone",
		httpx.Chain(http.HandlerFunc(h.HandleUpdatePhone),
			r.authn(v),
			httpx.RateLimitByAccount(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("PUT "+base+"/me/image",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateImage),
			r.authn(v),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AccountStatusHandler{AuthService: r.AuthService}

	r.Mux.Handle("PATCH /v1/admin/accounts/{variant}/{id}/status",
		httpx.Chain(h,
			r.authn(domain.VariantAdmin),
			httpx.RequireRoles(string(domain.RoleAdmin)),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Cache),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
