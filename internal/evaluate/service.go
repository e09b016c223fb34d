// Package evaluate serves whole-table formula evaluations to the rendering
// layer, with per-formula result caching and in-flight deduplication.
package evaluate

import (
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
	"github.com/couchcryptid/outbreak-map-service/internal/observability"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

// RegionValue is one region's evaluation result, shaped for the renderer.
type RegionValue struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"display_name"`
	Value       float64 `json:"value"`
	Formatted   string  `json:"formatted"`
}

// Service evaluates formulas against a read-only table. The map UI
// re-requests the same formula on every interaction, so results are cached
// per formula key, and concurrent identical requests collapse onto one
// computation.
type Service struct {
	table   *store.Table
	cache   *gocache.Cache
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done   chan struct{}
	values []RegionValue
	err    error
}

// New creates a Service. ttl bounds how long a formula result is reused;
// the table never changes after ingestion, so the TTL only bounds memory.
func New(table *store.Table, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		table:    table,
		cache:    gocache.New(ttl, 2*ttl),
		logger:   logger,
		metrics:  metrics,
		inflight: make(map[string]*call),
	}
}

// EvaluateAll computes the formula for every complete entry. Incomplete
// entries are excluded entirely, matching the renderer's rule that a region
// without data simply does not draw. Invalid formulas fail with an error
// wrapping domain.ErrInvalidArgument.
func (s *Service) EvaluateAll(f domain.Formula) ([]RegionValue, error) {
	key := f.Key()

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.EvaluateCache.WithLabelValues("hit").Inc()
		return cached.([]RegionValue), nil
	}

	s.mu.Lock()
	if c, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		<-c.done
		s.metrics.EvaluateCache.WithLabelValues("shared").Inc()
		return c.values, c.err
	}
	c := &call{done: make(chan struct{})}
	s.inflight[key] = c
	s.mu.Unlock()

	s.metrics.EvaluateCache.WithLabelValues("miss").Inc()
	c.values, c.err = s.evaluateAll(f)

	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
	close(c.done)

	if c.err == nil {
		s.cache.Set(key, c.values, gocache.DefaultExpiration)
	}
	return c.values, c.err
}

func (s *Service) evaluateAll(f domain.Formula) ([]RegionValue, error) {
	start := time.Now()

	values := make([]RegionValue, 0, s.table.Len())
	for _, key := range s.table.Keys() {
		e := s.table.Get(key)
		if !e.Complete() {
			continue
		}
		v, err := e.Evaluate(f)
		if err != nil {
			s.metrics.EvaluateErrors.Inc()
			return nil, err
		}
		values = append(values, RegionValue{
			Key:         key,
			DisplayName: e.DisplayName(),
			Value:       v,
			Formatted:   domain.FormatValue(v),
		})
	}

	s.metrics.EvaluateDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("evaluated formula", "formula", f.Key(), "regions", len(values))
	return values, nil
}
