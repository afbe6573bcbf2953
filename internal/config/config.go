// Package config loads service configuration from flags with environment
// variable overrides.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Poller   PollerConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPAddr     string
	RateLimitDur time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// CacheConfig holds thumbnail cache configuration.
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// PollerConfig holds poll loop configuration.
type PollerConfig struct {
	// CheckInterval is how long the poller sleeps between cycles.
	CheckInterval time.Duration
	// DefaultTTL applies to sources whose feed doesn't report a TTL.
	DefaultTTL time.Duration
	// FetchTimeout bounds connecting to feed and article hosts.
	FetchTimeout time.Duration
}

// AuthConfig holds API authentication configuration.
type AuthConfig struct {
	// Password is the shared secret checked against the x-auth header and
	// exchanged for a token at login.
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration.
func Load() *Config {
	httpAddr := flag.String("http", ":8013", "HTTP server address")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to the same host")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	cacheBackend := flag.String("cache-backend", "memory", "Thumbnail cache backend: memory or redis")
	cacheTTL := flag.Duration("cache-ttl", 36*time.Hour, "Thumbnail cache TTL")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	checkInterval := flag.Duration("check-interval", time.Minute, "Delay between poll cycles")
	defaultTTL := flag.Duration("default-ttl", time.Hour, "Poll interval for sources without a feed-reported TTL")
	fetchTimeout := flag.Duration("fetch-timeout", 5*time.Second, "Connect timeout for feed and page fetches")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "myfeed", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	applyStringEnv("HTTP_ADDR", httpAddr)
	applyDurationEnv("RATE_LIMIT", rateLimitDur)
	applyStringEnv("LOG_LEVEL", logLevel)
	applyStringEnv("CACHE_BACKEND", cacheBackend)
	applyDurationEnv("CACHE_TTL", cacheTTL)
	applyStringEnv("REDIS_ADDR", redisAddr)
	applyDurationEnv("CHECK_INTERVAL", checkInterval)
	applyDurationEnv("DEFAULT_TTL", defaultTTL)
	applyDurationEnv("FETCH_TIMEOUT", fetchTimeout)
	applyStringEnv("DB_HOST", dbHost)
	applyIntEnv("DB_PORT", dbPort)
	applyStringEnv("DB_USER", dbUser)
	applyStringEnv("DB_PASSWORD", dbPassword)
	applyStringEnv("DB_NAME", dbName)
	applyStringEnv("DB_SSLMODE", dbSSLMode)

	return &Config{
		Server: ServerConfig{
			HTTPAddr:     *httpAddr,
			RateLimitDur: *rateLimitDur,
		},
		Database: DatabaseConfig{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  *dbSSLMode,
		},
		Cache: CacheConfig{
			Backend:   *cacheBackend,
			TTL:       *cacheTTL,
			RedisAddr: *redisAddr,
		},
		Poller: PollerConfig{
			CheckInterval: *checkInterval,
			DefaultTTL:    *defaultTTL,
			FetchTimeout:  *fetchTimeout,
		},
		Auth:    loadAuthConfig(),
		Logging: LoggingConfig{Level: *logLevel},
	}
}

func loadAuthConfig() AuthConfig {
	tokenTTL := 24 * time.Hour
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tokenTTL = d
		}
	}

	return AuthConfig{
		Password:  getEnvOrDefault("PASSWORD", "password"),
		JWTSecret: getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		TokenTTL:  tokenTTL,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func applyStringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyIntEnv(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func applyDurationEnv(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
