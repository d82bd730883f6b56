// Package ask exposes complete SMW ask queries to MCP tools. It validates
// arguments, caches merged result sets and coalesces identical queries that
// are in flight at the same time.
package ask

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/infra"
	"github.com/olgasafonova/smw-ask-mcp-server/smw"
)

// Service runs ask queries against one wiki
type Service struct {
	api    smw.API
	opts   smw.Options
	logger *slog.Logger

	results *infra.Cache[*smw.ResultSet]
	info    *infra.Cache[*smw.Info]
	dedup   *infra.Deduplicator[*smw.ResultSet]
}

// Option configures the Service
type Option func(*serviceConfig)

type serviceConfig struct {
	cacheTTL  time.Duration
	cacheSize int
}

// WithCacheTTL sets how long merged results are reused
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) {
		c.cacheTTL = ttl
	}
}

// WithCacheSize sets the number of cached result sets
func WithCacheSize(n int) Option {
	return func(c *serviceConfig) {
		c.cacheSize = n
	}
}

// CacheTTLFromEnv reads ASK_CACHE_TTL, falling back to the cache default
func CacheTTLFromEnv() time.Duration {
	if v := os.Getenv("ASK_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return infra.DefaultCacheTTL
}

// NewService creates a service; opts are the defaults for every query
func NewService(api smw.API, opts smw.Options, logger *slog.Logger, options ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := serviceConfig{cacheTTL: infra.DefaultCacheTTL, cacheSize: infra.DefaultMaxCacheEntries}
	for _, o := range options {
		o(&cfg)
	}
	return &Service{
		api:     api,
		opts:    opts,
		logger:  logger,
		results: infra.NewCache[*smw.ResultSet](cfg.cacheSize, cfg.cacheTTL),
		info:    infra.NewCache[*smw.Info](1, cfg.cacheTTL),
		dedup:   infra.NewDeduplicator[*smw.ResultSet](),
	}
}

// Close stops the cache janitors
func (s *Service) Close() {
	s.results.Close()
	s.info.Close()
}

// Client returns a query client using the given division factor, or the
// service default when division is 0.
func (s *Service) Client(division int) *smw.Client {
	opts := s.opts
	if division > 0 {
		opts.DivisionFactor = division
	}
	return smw.NewClient(s.api, opts, s.logger)
}

// Query runs a complete ask query. Results are cached per normalized query,
// limit and division factor; cached reports a cache hit or a result shared
// with a concurrent identical call.
func (s *Service) Query(ctx context.Context, query string, limit, division int) (rs *smw.ResultSet, cached bool, err error) {
	client := s.Client(division)
	fixed := smw.FixAsk(query)
	key := infra.CacheKey(fixed, strconv.Itoa(limit), strconv.Itoa(client.Options().DivisionFactor))

	if rs, ok := s.results.Get(key); ok {
		s.logger.Debug("Ask cache hit", "query", fixed)
		return rs, true, nil
	}

	rs, shared, err := s.dedup.Do(ctx, key, func() (*smw.ResultSet, error) {
		return client.Query(ctx, fixed, limit)
	})
	if err != nil {
		return nil, false, err
	}
	if !shared {
		s.results.Set(key, rs)
	}
	return rs, shared, nil
}

// Info returns the wiki's SMW statistics, cached like query results
func (s *Service) Info(ctx context.Context) (*smw.Info, error) {
	const key = "smwinfo"
	if info, ok := s.info.Get(key); ok {
		return info, nil
	}
	info, err := s.Client(0).Info(ctx)
	if err != nil {
		return nil, err
	}
	s.info.Set(key, info)
	return info, nil
}
