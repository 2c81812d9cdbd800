package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maimweb/backend/internal/metrics"
)

// Catalog payload names.
const (
	CatalogSystemModels = "system_models"
	CatalogBotDefaults  = "bot_defaults"
)

// CatalogCache stores catalog payloads. Implemented by *cache.Cache.
type CatalogCache interface {
	GetCatalog(ctx context.Context, name string) (json.RawMessage, bool, error)
	SetCatalog(ctx context.Context, name string, payload json.RawMessage, ttl time.Duration) error
}

// CatalogService serves read-only system data, cached when a cache is
// configured.
type CatalogService struct {
	upstream CatalogBackend
	cache    CatalogCache
	ttl      time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService. cache may be nil.
func NewCatalogService(backend CatalogBackend, cache CatalogCache, ttl time.Duration, recorder metrics.Recorder, logger *slog.Logger) *CatalogService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		upstream: backend,
		cache:    cache,
		ttl:      ttl,
		metrics:  recorder,
		logger:   logger,
	}
}

// SystemModels returns the upstream model catalog.
func (s *CatalogService) SystemModels(ctx context.Context) (json.RawMessage, error) {
	return s.get(ctx, CatalogSystemModels, s.upstream.SystemModels)
}

// BotDefaults returns the upstream bot defaults.
func (s *CatalogService) BotDefaults(ctx context.Context) (json.RawMessage, error) {
	return s.get(ctx, CatalogBotDefaults, s.upstream.BotDefaults)
}

func (s *CatalogService) get(ctx context.Context, name string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if s.cache == nil || s.ttl <= 0 {
		return fetch(ctx)
	}

	cached, hit, err := s.cache.GetCatalog(ctx, name)
	if err != nil {
		s.logger.Warn("catalog cache read failed",
			slog.String("catalog", name),
			slog.String("error", err.Error()),
		)
	} else if hit {
		s.metrics.IncCatalogCacheHit()
		return cached, nil
	}
	s.metrics.IncCatalogCacheMiss()

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetCatalog(ctx, name, payload, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed",
			slog.String("catalog", name),
			slog.String("error", err.Error()),
		)
	}
	return payload, nil
}
