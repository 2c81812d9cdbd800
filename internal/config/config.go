// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// MinTokenSecretLength is the shortest TOKEN_SECRET accepted in production.
const MinTokenSecretLength = 32

// DefaultTokenSecret is the placeholder shipped in example env files.
// It is rejected in production.
const DefaultTokenSecret = "change-me"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	AppPort   int    `env:"APP_PORT" envDefault:"8080"`
	APIPrefix string `env:"API_PREFIX" envDefault:"/api/v1"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis). Optional; the catalog is served uncached without it.
	RedisURL string `env:"REDIS_URL"`

	// Upstream configuration service
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Bearer tokens
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"192h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// System catalog cache lifetime; zero disables caching
	SystemCacheTTL time.Duration `env:"SYSTEM_CACHE_TTL" envDefault:"5m"`

	// Concurrent upstream calls when listing agents across tenants
	AgentFanoutLimit int `env:"AGENT_FANOUT_LIMIT" envDefault:"8"`

	// Set by Validate when a development secret was generated.
	EphemeralTokenSecret bool
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints. Outside production a missing
// TOKEN_SECRET is replaced by a random one and EphemeralTokenSecret is set.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.TokenSecret == "" && !c.IsProduction():
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.TokenSecret = secret
		c.EphemeralTokenSecret = true
	case c.TokenSecret == "":
		errs = append(errs, errors.New("TOKEN_SECRET is required in production"))
	case c.IsProduction() && c.TokenSecret == DefaultTokenSecret:
		errs = append(errs, errors.New("TOKEN_SECRET must not use the default value in production"))
	case c.IsProduction() && len(c.TokenSecret) < MinTokenSecretLength:
		errs = append(errs, fmt.Errorf("TOKEN_SECRET must be at least %d characters in production", MinTokenSecretLength))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("UPSTREAM_BASE_URL %q is not an absolute URL", c.UpstreamBaseURL))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}

	if c.AgentFanoutLimit < 1 {
		errs = append(errs, errors.New("AGENT_FANOUT_LIMIT must be at least 1"))
	}
	if c.SystemCacheTTL < 0 {
		errs = append(errs, errors.New("SYSTEM_CACHE_TTL must not be negative"))
	}

	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix))
	}
	c.APIPrefix = strings.TrimSuffix(c.APIPrefix, "/")

	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, MinTokenSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Load parses environment variables, validates them and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
