package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                  string        // Environment (dev, staging, production) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired OTP / blacklist sweep interval (default: 1h)

	// Storage
	DBDriver      string // sqlite or mongo (default: sqlite)
	DatabaseFile  string // SQLite database file (default: ./auth.db)
	MongoURI      string // Required when DBDriver is mongo
	MongoDatabase string // (default: ridebook)

	// OTP limits live in Redis when RedisAddr is set, in process otherwise.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string // (default: ridebook:otp)

	// Tokens. Either both secrets or a master secret to derive them from.
	AccessSecret     string
	RefreshSecret    string
	MasterSecret     string
	Issuer           string        // Issuer claim for tokens (default: ridebook-auth)
	AccessTTL        time.Duration // (default: 15m)
	RefreshTTL       time.Duration // (default: 7d)
	TokenLeeway      time.Duration // Clock skew tolerated on exp/nbf (default: 0)
	BlacklistEnabled bool          // Record access tokens on logout (default: true)

	OTPTTL time.Duration // (default: 5m)

	// Twilio. Without an account SID codes are only logged.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioChannel    string // sms or whatsapp (default: sms)
	Brand            string // Product name in the message body (default: ridebook)

	MediaDir     string // Profile image directory (default: ./media)
	MediaBaseURL string // Public URL of MediaDir (default: http://localhost:8080/files)

	CORSAllowedOrigins   []string // (default: *)
	AdminBootstrapPhones []string // Admin accounts ensured at startup
}

func LoadConfig() Config {
	cfg := Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DBDriver:      strings.ToLower(getEnvOrDefault("DB_DRIVER", "sqlite")),
		DatabaseFile:  getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnvOrDefault("MONGO_DB", "ridebook"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "ridebook:otp"),

		AccessSecret:     os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:    os.Getenv("JWT_REFRESH_SECRET"),
		MasterSecret:     os.Getenv("AUTH_MASTER_SECRET"),
		Issuer:           getEnvOrDefault("AUTH_ISSUER", "ridebook-auth"),
		AccessTTL:        getEnvDurationOrDefault("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       getEnvDurationOrDefault("JWT_REFRESH_TTL", 7*24*time.Hour),
		TokenLeeway:      getEnvDurationOrDefault("JWT_LEEWAY", 0),
		BlacklistEnabled: getEnvBoolOrDefault("BLACKLIST_ENABLED", true),

		OTPTTL: getEnvDurationOrDefault("OTP_TTL", 5*time.Minute),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		TwilioChannel:    strings.ToLower(getEnvOrDefault("TWILIO_CHANNEL", "sms")),
		Brand:            getEnvOrDefault("BRAND", "ridebook"),

		MediaDir:     getEnvOrDefault("MEDIA_DIR", "media"),
		MediaBaseURL: getEnvOrDefault("MEDIA_BASE_URL", "http://localhost:8080/files"),

		CORSAllowedOrigins:   getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AdminBootstrapPhones: getEnvListOrDefault("ADMIN_BOOTSTRAP_PHONES", nil),
	}

	return cfg
}

// Production reports whether ENV names the production environment. It is
// never inferred from anything else.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects combinations the application cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when DB_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want sqlite or mongo)", c.DBDriver)
	}

	switch c.TwilioChannel {
	case "sms", "whatsapp":
	default:
		return fmt.Errorf("unknown TWILIO_CHANNEL %q (want sms or whatsapp)", c.TwilioChannel)
	}
	if c.TwilioAccountSID != "" && (c.TwilioAuthToken == "" || c.TwilioFrom == "") {
		return fmt.Errorf("TWILIO_AUTH_TOKEN and TWILIO_FROM are required with TWILIO_ACCOUNT_SID")
	}

	if (c.AccessSecret == "") != (c.RefreshSecret == "") {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set together")
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.OTPTTL <= 0 {
		return fmt.Errorf("token and OTP lifetimes must be positive")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping blanks.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
