// Package main is the entrypoint for the maimweb backend API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/maimweb/backend/internal/auth"
	"github.com/maimweb/backend/internal/cache"
	"github.com/maimweb/backend/internal/config"
	"github.com/maimweb/backend/internal/handler"
	"github.com/maimweb/backend/internal/metrics"
	"github.com/maimweb/backend/internal/ownership"
	"github.com/maimweb/backend/internal/repository"
	"github.com/maimweb/backend/internal/server"
	"github.com/maimweb/backend/internal/service"
	"github.com/maimweb/backend/internal/upstream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	if cfg.EphemeralTokenSecret {
		logger.Warn("TOKEN_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}

	// Database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", "error", sanitizeError(err, cfg.DatabaseURL))
			repo.Close()
			os.Exit(1)
		}
		logger.Info("database schema up to date")
	}

	// Optional catalog cache
	var (
		catalogCache service.CatalogCache
		cacheHealth  handler.HealthChecker
		cacheClient  *cache.Cache
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		catalogCache = cacheClient
		cacheHealth = cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Info("REDIS_URL not set; system catalog is not cached")
	}

	recorder := metrics.NewPrometheus()

	// Core components
	client := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
	}, recorder, logger)
	verifier := ownership.NewVerifier(repo, client, recorder, logger)
	tokens := auth.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)

	// Services
	provisioner := service.NewProvisioner(repo, client, verifier, recorder, logger)
	authService := service.NewAuthService(repo, tokens, logger)
	agentService := service.NewAgentService(repo, client, verifier, cfg.AgentFanoutLimit, logger)
	tenantService := service.NewTenantService(repo, client, verifier, logger)
	catalogService := service.NewCatalogService(client, catalogCache, cfg.SystemCacheTTL, recorder, logger)
	adminService := service.NewAdminService(repo, agentService, verifier)

	// Router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:             logger,
		Metrics:            recorder,
		Authenticator:      authService,
		APIPrefix:          cfg.APIPrefix,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,

		Root:    handler.New(version),
		Health:  handler.NewHealthHandler(version, repo, cacheHealth),
		Export:  handler.NewMetricsHandler(recorder.Handler()),
		Auth:    handler.NewAuthHandler(provisioner, authService, logger),
		Agents:  handler.NewAgentHandler(agentService, logger),
		Tenants: handler.NewTenantHandler(provisioner, tenantService, logger),
		System:  handler.NewSystemHandler(catalogService, logger),
		Admin:   handler.NewAdminHandler(adminService, logger),
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, closed last.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"api_prefix", cfg.APIPrefix,
		"upstream", redactURL(cfg.UpstreamBaseURL),
		"env", cfg.AppEnv,
		"version", version,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "maimweb-backend")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
