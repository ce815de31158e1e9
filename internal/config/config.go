package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	DriverBolt     = "bolt"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Document store
	Store StoreConfig

	// JWT
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	Lifecycle       LifecycleConfig
	PasswordPolicy  PasswordPolicyConfig
	Validation      ValidationConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig

	// Observability
	MetricsEnabled bool
	LogFormat      string
	LogLevel       string
}

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Driver string

	// bbolt
	BoltPath string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// LifecycleConfig tunes organization lifecycle operations.
type LifecycleConfig struct {
	CopyBatchSize int
	Compensate    bool
}

// PasswordPolicyConfig holds admin password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// ValidationConfig holds request validation settings.
type ValidationConfig struct {
	MaxRequestBodySize    int64
	StrictEmailValidation bool
	BlockDisposableEmail  bool
}

// RateLimitConfig holds per-IP rate limits for the login and organization routes.
type RateLimitConfig struct {
	Enabled      bool
	AuthRequests int
	AuthWindow   time.Duration
	OrgRequests  int
	OrgWindow    time.Duration
}

// SecurityHeadersConfig holds HTTP security header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// Load loads server configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := LoadWithoutSecrets()
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// LoadWithoutSecrets loads configuration without requiring the token signing
// secret. Operator tools that never issue tokens use it.
func LoadWithoutSecrets() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("STORE_DRIVER", DriverBolt)),
			BoltPath: getEnv("BOLT_PATH", "org_management.db"),

			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "org_management"),

			// Database defaults (matches podman setup: make postgres-start)
			DBHost:     getEnv("DB_HOST", "localhost"),
			DBPort:     getEnvInt("DB_PORT", 25432),
			DBUser:     getEnv("DB_USER", "postgres"),
			DBPassword: getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "org_management"),
			DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// JWT defaults
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "simple-org"),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		Lifecycle: LifecycleConfig{
			CopyBatchSize: getEnvInt("COPY_BATCH_SIZE", 500),
			Compensate:    getEnvBool("SAGA_COMPENSATE", true),
		},

		// No requirements by default
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 0),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", false),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", false),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", false),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},

		Validation: ValidationConfig{
			MaxRequestBodySize:    int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
			StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", false),
			BlockDisposableEmail:  getEnvBool("BLOCK_DISPOSABLE_EMAIL", false),
		},

		RateLimit: RateLimitConfig{
			Enabled:      getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:   getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			OrgRequests:  getEnvInt("RATE_LIMIT_ORG_REQUESTS", 60),
			OrgWindow:    getEnvDuration("RATE_LIMIT_ORG_WINDOW", time.Minute),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: "nosniff",
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()"),
		},

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverBolt, DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of %s, %s, %s; got %q", DriverBolt, DriverMongo, DriverPostgres, c.Store.Driver)
	}
	if c.Lifecycle.CopyBatchSize <= 0 {
		return fmt.Errorf("COPY_BATCH_SIZE must be positive")
	}
	if c.Validation.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
