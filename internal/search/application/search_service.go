package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	"github.com/davicafu/minicommerce/internal/search/domain"
	sharedCache "github.com/davicafu/minicommerce/internal/shared/infra/platform/cache"
)

// SearchService responde las consultas de pedidos contra el índice de
// búsqueda. Es el modelo de consulta del CQRS: no toca el almacén relacional.
//
// Solo las consultas filtradas únicamente por userId pasan por la caché
// (cache-aside): el resto de combinaciones van directas al índice. No hay
// invalidación activa; un resultado cacheado puede retrasarse hasta el TTL.
type SearchService struct {
	repo     domain.SearchRepository
	cache    sharedCache.Cache
	metrics  *observability.Metrics
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewSearchService(
	repo domain.SearchRepository,
	cache sharedCache.Cache,
	metrics *observability.Metrics,
	cacheTTL time.Duration,
	log *zap.Logger,
) *SearchService {
	return &SearchService{
		repo:     repo,
		cache:    cache,
		metrics:  metrics,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Search devuelve los pedidos que cumplen el filtro.
func (s *SearchService) Search(ctx context.Context, f domain.Filter) ([]domain.OrderDocument, error) {
	if f.UserOnly() && s.cache != nil {
		return s.searchByUserCached(ctx, f)
	}

	return s.repo.Find(ctx, f)
}

func (s *SearchService) searchByUserCached(ctx context.Context, f domain.Filter) ([]domain.OrderDocument, error) {
	key := domain.UserCacheKey(*f.UserID)

	// 1) Primero la caché
	var cached []domain.OrderDocument
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("fallo leyendo la caché de búsqueda, voy al índice", zap.Error(err))
	} else if hit {
		s.metrics.CacheSearchHit.Inc()
		s.log.Debug("[CACHE] HIT", zap.String("key", key))
		return cached, nil
	}

	// 2) Miss: consulta al índice
	s.metrics.CacheSearchMiss.Inc()
	s.log.Debug("[CACHE] MISS", zap.String("key", key))

	result, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if result == nil {
		// El JSON cacheado debe ser una lista, nunca null.
		result = []domain.OrderDocument{}
	}

	// 3) Se guarda el resultado serializado con TTL corto
	if err := s.cache.Set(ctx, key, result, int(s.cacheTTL.Seconds())); err != nil {
		s.log.Warn("no se pudo escribir la caché de búsqueda", zap.String("key", key), zap.Error(err))
	}

	return result, nil
}
