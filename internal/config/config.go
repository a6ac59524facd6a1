// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup and passed to other packages via dependency
// injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Session holds session registry settings.
	Session SessionConfig

	// AllowedOrigins lists origins permitted by CORS. Comma-separated in
	// the CORS_ALLOWED_ORIGINS env var.
	AllowedOrigins []string
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields are
// read from separate env vars so container orchestrators can manage each
// independently. If DATABASE_URL is set, it takes precedence.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format. If no port is
	// specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username.
	User string

	// Password is the MariaDB password.
	Password string

	// Name is the database name.
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing the
	// individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL
// was set, it is returned as-is. Otherwise the DSN is built from the
// individual fields using the driver's Config.FormatDSN() to safely handle
// special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379").
	URL string
}

// SessionConfig holds session registry settings.
type SessionConfig struct {
	// TTL is the sliding expiration window. Every resolved request pushes
	// a session's expiry forward by this much (default: 15m).
	TTL time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults. Returns an error if required settings are invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "forum"),
			Password:        getEnv("DB_PASSWORD", "forum"),
			Name:            getEnv("DB_NAME", "forum"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Session: SessionConfig{
			TTL: getEnvDuration("SESSION_TTL", 15*time.Minute),
		},

		AllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %v", cfg.Session.TTL)
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// splitAndTrim splits a comma-separated list and trims whitespace,
// dropping empty items.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g. "15m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
