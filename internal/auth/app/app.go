package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/ridebook/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/ridebook/internal/auth/http"
	"github.com/aussiebroadwan/ridebook/internal/auth/limiter"
	"github.com/aussiebroadwan/ridebook/internal/auth/media"
	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/notify"
	"github.com/aussiebroadwan/ridebook/internal/auth/service"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
	"github.com/aussiebroadwan/ridebook/internal/auth/store/drivers/mongo"
	"github.com/aussiebroadwan/ridebook/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/ridebook/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	startupTimeout = 10 * time.Second
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	rdb      *redis.Client // nil when limits are kept in process
	guard    limiter.Guard
	cache    httpapi.Pinger
	notifier notify.Notifier
	storage  *media.LocalStorage
	metrics  *metrics.Metrics
	secrets  SigningSecrets

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "ridebook-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,

			MaskPhones: cfg.Production(),
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	secrets, err := LoadSigningSecrets(cfg, app.logger)
	if err != nil {
		app.closeDependencies()
		return nil, fmt.Errorf("failed to load signing secrets: %w", err)
	}
	app.secrets = secrets

	if err := app.initLimiter(ctx); err != nil {
		app.closeDependencies()
		return nil, err
	}
	app.initNotifier()

	if err := app.initServices(); err != nil {
		app.closeDependencies()
		return nil, err
	}
	if err := app.bootstrapAdmins(ctx); err != nil {
		app.closeDependencies()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"db_driver", app.cfg.DBDriver,
		"production", app.cfg.Production(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeDependencies()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeDependencies releases the cache and database connections.
func (app *Application) closeDependencies() error {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			return err
		}
	}
	return nil
}

// initDatabase opens the configured store and prepares its schema
func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DBDriver {
	case "mongo":
		db, err := mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		app.db = db
		app.logger.Info("mongo store ready", "database", app.cfg.MongoDatabase)

	default:
		host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(host)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db

		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	}

	return nil
}

// initLimiter keeps OTP cooldowns and lockouts in Redis when configured so
// they hold across replicas.
func (app *Application) initLimiter(ctx context.Context) error {
	policy := limiter.DefaultPolicy()

	if app.cfg.RedisAddr == "" {
		app.guard = limiter.NewMemory(policy, time.Now)
		app.logger.Warn("REDIS_ADDR not set, OTP limits are per process")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}

	guard := limiter.NewRedis(rdb, policy, app.cfg.RedisPrefix)
	app.rdb = rdb
	app.guard = guard
	app.cache = guard
	app.logger.Info("redis limiter ready", "addr", app.cfg.RedisAddr, "prefix", app.cfg.RedisPrefix)
	return nil
}

func (app *Application) initNotifier() {
	msg := notify.Message{Brand: app.cfg.Brand, TTL: app.cfg.OTPTTL}

	if app.cfg.TwilioAccountSID == "" {
		app.notifier = notify.LogNotifier{Message: msg}
		if app.cfg.Production() {
			app.logger.Warn("TWILIO_ACCOUNT_SID not set, OTPs will only be logged")
		}
		return
	}

	app.notifier = notify.NewTwilioNotifier(notify.TwilioConfig{
		AccountSID: app.cfg.TwilioAccountSID,
		AuthToken:  app.cfg.TwilioAuthToken,
		From:       app.cfg.TwilioFrom,
		Channel:    notify.Channel(app.cfg.TwilioChannel),
	}, msg)
	app.logger.Info("twilio notifier ready", "channel", app.cfg.TwilioChannel)
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	app.metrics = metrics.New()

	storage, err := media.NewLocalStorage(app.cfg.MediaDir, app.cfg.MediaBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	app.storage = storage

	tokens, err := service.NewTokenService(app.db, app.metrics, service.TokenConfig{
		AccessSecret:     app.secrets.Access,
		RefreshSecret:    app.secrets.Refresh,
		Issuer:           app.cfg.Issuer,
		AccessTTL:        app.cfg.AccessTTL,
		RefreshTTL:       app.cfg.RefreshTTL,
		BlacklistEnabled: app.cfg.BlacklistEnabled,
		Leeway:           app.cfg.TokenLeeway,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.authService = &service.AuthService{
		Store:      app.db,
		OTPs:       &service.OTPService{Store: app.db, TTL: app.cfg.OTPTTL},
		Identity:   &service.IdentityResolver{Store: app.db},
		Tokens:     tokens,
		Guard:      app.guard,
		Notifier:   app.notifier,
		Media:      storage,
		Metrics:    app.metrics,
		Production: app.cfg.Production(),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// bootstrapAdmins makes sure every ADMIN_BOOTSTRAP_PHONES number has an
// admin account. Admins cannot register themselves.
func (app *Application) bootstrapAdmins(ctx context.Context) error {
	for _, phone := range app.cfg.AdminBootstrapPhones {
		identity := parseBootstrapPhone(phone)
		acc, created, err := app.authService.Identity.Provision(ctx, domain.VariantAdmin, identity, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin %s: %w", identity, err)
		}
		if created {
			app.logger.Info("admin account bootstrapped", "account_id", acc.ID, "phone", identity.String())
		}
	}
	return nil
}

// parseBootstrapPhone accepts "9876543210" or "+91 9876543210".
func parseBootstrapPhone(s string) domain.Identity {
	cc, number, found := strings.Cut(strings.TrimSpace(s), " ")
	if !found {
		return domain.NewIdentity("", cc)
	}
	return domain.NewIdentity(cc, number)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.Metrics = app.metrics
	router.Cache = app.cache
	router.Files = app.storage.Handler()
	router.ApplyRoutes()

	app.router = router

	cors := handlers.CORS(
		handlers.AllowedOrigins(app.cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Retry-After"}),
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           cors(router),
		ReadHeaderTimeout: 3 * time.Second,
	}
}
