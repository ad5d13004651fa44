package cache

import (
	"context"
	"time"

	"libreriapos/backend/internal/domain"
)

type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.SalesStatistics, bool, error)
	Set(ctx context.Context, key string, value *domain.SalesStatistics, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.SalesStatistics, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.SalesStatistics, _ time.Duration) error {
	return nil
}
