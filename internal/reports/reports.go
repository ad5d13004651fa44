package reports

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"libreriapos/backend/internal/cache"
	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store"
)

// Engine computes sales aggregates over the repository. Statistics results
// are cached for a short TTL; a stale-by-seconds dashboard number is fine
// and voids/new sales age out with the TTL instead of explicit
// invalidation.
type Engine struct {
	repo     store.Repository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Statistics aggregates completed sales in [from, to) and compares revenue
// against the immediately preceding window of the same length.
func (e *Engine) Statistics(ctx context.Context, from time.Time, to time.Time) (domain.SalesStatistics, error) {
	cacheKey := buildCacheKey(from, to)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached, nil
	}

	total, count, err := e.repo.GetSalesTotals(ctx, from, to)
	if err != nil {
		return domain.SalesStatistics{}, err
	}

	avg := int64(0)
	if count > 0 {
		avg = int64(math.Round(float64(total) / float64(count)))
	}

	window := to.Sub(from)
	prevTotal, _, err := e.repo.GetSalesTotals(ctx, from.Add(-window), from)
	if err != nil {
		return domain.SalesStatistics{}, err
	}

	change := 0.0
	if prevTotal > 0 {
		change = round2(float64(total-prevTotal) / float64(prevTotal) * 100)
	}

	stats := domain.SalesStatistics{
		TotalCents:         total,
		TransactionCount:   count,
		AverageTicketCents: avg,
		ChangeFromPriorPct: change,
	}
	_ = e.cache.Set(ctx, cacheKey, &stats, e.cacheTTL)
	return stats, nil
}

func (e *Engine) TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}
	return e.repo.TopSellingProducts(ctx, from, to, limit)
}

func (e *Engine) PaymentMethods(ctx context.Context, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	return e.repo.SalesByPaymentMethod(ctx, from, to)
}

func buildCacheKey(from time.Time, to time.Time) string {
	raw := fmt.Sprintf("%d|%d", from.UTC().Unix(), to.UTC().Unix())
	hash := sha1.Sum([]byte(raw))
	return "pos:salesstats:" + hex.EncodeToString(hash[:])
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
