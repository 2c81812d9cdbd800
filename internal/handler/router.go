package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/maimweb/backend/internal/metrics"
	"github.com/maimweb/backend/internal/middleware"
)

// RouterConfig holds the handlers and middleware settings of the API.
type RouterConfig struct {
	Logger             *slog.Logger
	Metrics            metrics.Recorder
	Authenticator      middleware.Authenticator
	APIPrefix          string
	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64

	Root    *Handler
	Health  *HealthHandler
	Export  *MetricsHandler
	Auth    *AuthHandler
	Agents  *AgentHandler
	Tenants *TenantHandler
	System  *SystemHandler
	Admin   *AdminHandler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(middleware.CORSOptions{Origins: cfg.CORSAllowedOrigins}))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	// Probes (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Export != nil {
		r.Get("/metrics", cfg.Export.Metrics)
	}
	r.Get("/", cfg.Root.Info)

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Logger:        cfg.Logger,
		Authenticator: cfg.Authenticator,
	})

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.With(requireAuth).Get("/me", cfg.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", cfg.Agents.List)
				r.Post("/", cfg.Agents.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Agents.Get)
					r.Put("/", cfg.Agents.Update)
					r.Delete("/", cfg.Agents.Delete)

					r.Get("/api_keys", cfg.Agents.ListAPIKeys)
					r.Post("/api_keys", cfg.Agents.CreateAPIKey)
					r.Put("/api_keys/{key_id}", cfg.Agents.UpdateAPIKey)
					r.Delete("/api_keys/{key_id}", cfg.Agents.DeleteAPIKey)
				})
			})

			r.Post("/plugins/settings", cfg.Agents.UpsertPluginSetting)

			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", cfg.Tenants.List)
				r.Post("/", cfg.Tenants.Create)
				r.Get("/{id}", cfg.Tenants.Get)
				r.Put("/{id}", cfg.Tenants.Update)
				r.Delete("/{id}", cfg.Tenants.Delete)
			})

			r.Route("/system", func(r chi.Router) {
				r.Get("/models", cfg.System.Models)
				r.Get("/bot-defaults", cfg.System.BotDefaults)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/chat-history", cfg.Admin.ChatHistory)
				r.Get("/files", cfg.Admin.Files)
				r.Get("/metrics", cfg.Admin.Metrics)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}
