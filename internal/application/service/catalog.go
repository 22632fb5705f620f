package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nlukin/sheet-orders/internal/cache"
	"github.com/nlukin/sheet-orders/internal/domain"
	"github.com/nlukin/sheet-orders/internal/observability"
	"github.com/nlukin/sheet-orders/internal/pkg/breaker"
)

//go:generate mockgen -source internal/application/service/catalog.go -destination=internal/application/service/catalog_mock_test.go -package=service

// ProductFetcher reads the full catalog from the remote store.
type ProductFetcher interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

const productsKey = "products"

// CatalogService serves products from the TTL cache, falling back to a stale
// entry when the remote store cannot be reached. The breaker keeps a
// flapping store from being hammered by misses while stale data is served.
type CatalogService struct {
	cache   *cache.Cache[[]domain.Product]
	fetcher ProductFetcher
	brk     *breaker.Breaker
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewCatalogService(
	c *cache.Cache[[]domain.Product],
	fetcher ProductFetcher,
	brk *breaker.Breaker,
	logger *zap.Logger,
	metrics observability.Metrics,
) *CatalogService {
	return &CatalogService{
		cache:   c,
		fetcher: fetcher,
		brk:     brk,
		logger:  logger,
		metrics: metrics,
	}
}

// StartAutoRefresh registers the catalog fetch as the background refresher,
// keeping the cache warm every TTL.
func (s *CatalogService) StartAutoRefresh() {
	s.cache.AutoRefresh(productsKey, s.fetch)
}

// Stop cancels the background refresh schedule.
func (s *CatalogService) Stop() {
	s.cache.StopAutoRefresh(productsKey)
}

// Products returns the catalog: a fresh cache hit if possible, otherwise a
// remote fetch, otherwise whatever stale entry is still around. An error is
// returned only when the remote fetch fails and nothing was ever cached.
func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, ProductStats, error) {
	var st ProductStats

	tCache := time.Now()
	if entry, ok := s.cache.Get(productsKey); ok && s.cache.IsFresh(productsKey) {
		st.Source = SourceFresh
		st.CacheMs = convertToMs(tCache)
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, 0)
		return entry.Data, st, nil
	}
	st.CacheMs = convertToMs(tCache)
	s.metrics.IncCacheMiss()

	tRemote := time.Now()
	products, err := s.fetch(ctx)
	if err != nil {
		st.RemoteMs = convertToMs(tRemote)
		if entry, ok := s.cache.Get(productsKey); ok {
			st.Source = SourceStale
			if age, ok := s.cache.Age(productsKey); ok {
				st.Age = age
			}
			s.metrics.IncCacheStale()
			s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.RemoteMs)
			s.logger.Warn("serving stale products",
				zap.Duration("age", st.Age),
				zap.Error(err),
			)
			return entry.Data, st, nil
		}
		s.logger.Error("product fetch failed with cold cache", zap.Error(err))
		return nil, st, err
	}
	st.RemoteMs = convertToMs(tRemote)
	st.Source = SourceRemote

	s.cache.Set(productsKey, products)
	s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.RemoteMs)
	s.logger.Info("products fetched",
		zap.Int("count", len(products)),
		zap.Float64("remote_ms", st.RemoteMs),
	)
	return products, st, nil
}

// Refresh forces a synchronous catalog reload through the cache's registered
// refresher. Unlike the background schedule, failures are returned so an
// interactive caller can see them.
func (s *CatalogService) Refresh(ctx context.Context) ([]domain.Product, error) {
	return s.cache.ForceRefresh(ctx, productsKey)
}

func (s *CatalogService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// fetch guards the remote call with the circuit breaker.
func (s *CatalogService) fetch(ctx context.Context) ([]domain.Product, error) {
	if err := s.brk.Allow(); err != nil {
		return nil, err
	}
	products, err := s.fetcher.FetchProducts(ctx)
	if err != nil {
		s.brk.Failure()
		return nil, err
	}
	s.brk.Success()
	return products, nil
}
