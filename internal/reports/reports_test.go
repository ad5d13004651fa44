package reports

import (
	"context"
	"sync"
	"testing"
	"time"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store/memory"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.SalesStatistics
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.SalesStatistics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.SalesStatistics, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]domain.SalesStatistics)
	}
	c.entries[key] = *value
	return nil
}

func seedSale(t *testing.T, repo *memory.Store, sessionID string, totalCents int64, at time.Time) {
	t.Helper()
	qty := int(totalCents / 100)
	_, err := repo.CreateSale(context.Background(), domain.Sale{
		SessionID:       sessionID,
		CashierUsername: "cashier",
		PaymentMethod:   domain.PaymentCash,
		CreatedAt:       at,
		Lines: []domain.SaleLine{
			{ProductID: "prod-lapicero", Qty: qty, UnitPriceCents: 100},
		},
	})
	if err != nil {
		t.Fatalf("seed sale: %v", err)
	}
}

func TestStatisticsComparesAgainstPrecedingWindow(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	session, err := repo.CreateSession(ctx, domain.CashSession{OpenedBy: "cashier"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	now := time.Now().UTC()
	seedSale(t, repo, session.ID, 10000, now.Add(-90*time.Minute))
	seedSale(t, repo, session.ID, 15000, now.Add(-30*time.Minute))

	engine := NewEngine(repo, nil, time.Second)
	stats, err := engine.Statistics(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}

	if stats.TotalCents != 15000 || stats.TransactionCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	// Prior hour held 10000, current holds 15000: +50%.
	if stats.ChangeFromPriorPct != 50 {
		t.Fatalf("change = %f, want 50", stats.ChangeFromPriorPct)
	}
}

func TestStatisticsServedFromCache(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	session, err := repo.CreateSession(ctx, domain.CashSession{OpenedBy: "cashier"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	now := time.Now().UTC()
	seedSale(t, repo, session.ID, 5000, now.Add(-30*time.Minute))

	cacheStore := &mapCache{}
	engine := NewEngine(repo, cacheStore, time.Minute)

	first, err := engine.Statistics(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if first.TotalCents != 5000 {
		t.Fatalf("total = %d, want 5000", first.TotalCents)
	}

	// A second sale inside the window is invisible until the TTL expires
	// because the cached entry answers first.
	seedSale(t, repo, session.ID, 2000, now.Add(-10*time.Minute))

	second, err := engine.Statistics(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if second.TotalCents != 5000 {
		t.Fatalf("expected cached total 5000, got %d", second.TotalCents)
	}
}

func TestTopProductsDefaultLimit(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, time.Second)

	now := time.Now().UTC()
	top, err := engine.TopProducts(context.Background(), now.Add(-time.Hour), now, -5)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected no sales yet, got %d", len(top))
	}
}
