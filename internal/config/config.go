// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage backends, payment provider
// credentials, catalog sources, admin identity, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-newsstand-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StripeConfig holds payment provider credentials and defaults.
type StripeConfig struct {
	SecretKey       string        // STRIPE_SECRET_KEY
	DefaultCurrency string        // DEFAULT_CURRENCY (ISO 4217, lowercase)
	Timeout         time.Duration // STRIPE_TIMEOUT for provider calls
}

// CatalogConfig describes where catalog data is served from. Endpoints are
// tried in order; the first that returns a well-formed response wins.
type CatalogConfig struct {
	Endpoints []string      // CATALOG_ENDPOINTS (comma-separated base URLs)
	Timeout   time.Duration // CATALOG_TIMEOUT per candidate
}

// AdminConfig holds the single allowed administrative identity. Only this
// identity is ever authorized, regardless of what a session claims.
type AdminConfig struct {
	Email        string        // ADMIN_EMAIL
	PasswordHash string        // ADMIN_PASSWORD_HASH (bcrypt)
	SessionKey   string        // SESSION_SECRET (HMAC key for session tokens)
	SessionTTL   time.Duration // SESSION_TTL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Storage
	DBDriver         string // mysql|sqlite
	DSN              string // MySQL DSN (when DBDriver=mysql)
	DBPath           string // SQLite path (when DBDriver=sqlite)
	EntitlementStore string // db|file
	BoltPath         string // bolt file path (when EntitlementStore=file)
	AssetBaseURL     string // public prefix for resolved asset URLs

	// Domain
	Stripe  StripeConfig
	Catalog CatalogConfig
	Admin   AdminConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:         strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DSN:              getenv("MYSQL_DSN", ""),
		DBPath:           getenv("DB_PATH", "newsstand.db"),
		EntitlementStore: strings.ToLower(getenv("ENTITLEMENT_STORE", "db")),
		BoltPath:         getenv("BOLT_PATH", "entitlements.db"),
		AssetBaseURL:     strings.TrimRight(getenv("ASSET_BASE_URL", "/assets"), "/"),

		// Domain
		Stripe: StripeConfig{
			SecretKey:       getenv("STRIPE_SECRET_KEY", ""),
			DefaultCurrency: strings.ToLower(getenv("DEFAULT_CURRENCY", "brl")),
			Timeout:         getdur("STRIPE_TIMEOUT", 10*time.Second),
		},
		Catalog: CatalogConfig{
			Endpoints: splitCSV(getenv("CATALOG_ENDPOINTS", "")),
			Timeout:   getdur("CATALOG_TIMEOUT", 5*time.Second),
		},
		Admin: AdminConfig{
			Email:        strings.ToLower(strings.TrimSpace(getenv("ADMIN_EMAIL", ""))),
			PasswordHash: getenv("ADMIN_PASSWORD_HASH", ""),
			SessionKey:   getenv("SESSION_SECRET", ""),
			SessionTTL:   getdur("SESSION_TTL", 12*time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-newsstand-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "mysql":
		if strings.TrimSpace(cfg.DSN) == "" {
			return cfg, errors.New("MYSQL_DSN must not be empty when DB_DRIVER=mysql")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty when DB_DRIVER=sqlite")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: mysql, sqlite")
	}
	switch cfg.EntitlementStore {
	case "db":
	case "file":
		if strings.TrimSpace(cfg.BoltPath) == "" {
			return cfg, errors.New("BOLT_PATH must not be empty when ENTITLEMENT_STORE=file")
		}
	default:
		return cfg, errors.New("ENTITLEMENT_STORE must be one of: db, file")
	}
	if len(cfg.Stripe.DefaultCurrency) != 3 {
		return cfg, errors.New("DEFAULT_CURRENCY must be a three-letter ISO 4217 code")
	}
	if cfg.Stripe.Timeout <= 0 || cfg.Catalog.Timeout <= 0 {
		return cfg, errors.New("STRIPE_TIMEOUT and CATALOG_TIMEOUT must be positive durations")
	}
	if cfg.Admin.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
