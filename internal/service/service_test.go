package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store"
	"libreriapos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil)
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func openSession(t *testing.T, svc *Service, ctx context.Context, floatCents int64) domain.CashSession {
	t.Helper()
	session, err := svc.OpenSession(ctx, domain.SessionOpenRequest{OpeningFloatCents: floatCents})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	return session
}

func TestCreateSaleRequiresOpenSession(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-soledad", Qty: 1}},
	})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected invalid state without open session, got %v", err)
	}
}

func TestCreateSalePricesByCustomerTier(t *testing.T) {
	cases := []struct {
		name       string
		customerID string
		wantUnit   int64
	}{
		{"walk-in retail", "", 15000},
		{"retail customer", "cust-cf", 15000},
		{"wholesale customer", "cust-quetzal", 12500},
		{"cost customer", "cust-escuela", 9800},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService()
			ctx := cashierCtx()
			openSession(t, svc, ctx, 0)

			sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
				CustomerID:    tc.customerID,
				PaymentMethod: domain.PaymentCash,
				Lines:         []domain.SaleLineRequest{{ProductID: "prod-soledad", Qty: 2}},
			})
			if err != nil {
				t.Fatalf("create sale failed: %v", err)
			}
			if got := sale.Lines[0].UnitPriceCents; got != tc.wantUnit {
				t.Fatalf("unit price = %d, want %d", got, tc.wantUnit)
			}
			if sale.TotalCents != tc.wantUnit*2 {
				t.Fatalf("total = %d, want %d", sale.TotalCents, tc.wantUnit*2)
			}
		})
	}
}

func TestCreateSaleCostTierWithoutRecordedCostIsFree(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	// Lapicero Azul has no cost price on record.
	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		CustomerID:    "cust-escuela",
		PaymentMethod: domain.PaymentTransfer,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-lapicero", Qty: 10}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.TotalCents != 0 {
		t.Fatalf("expected zero total for cost tier without cost price, got %d", sale.TotalCents)
	}
}

func TestCreateSaleDiscountMath(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Lines: []domain.SaleLineRequest{
			{ProductID: "prod-cuaderno", Qty: 3, DiscountCents: 400},
			{ProductID: "prod-principito", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	if got := sale.Lines[0].SubtotalCents; got != 3*1800-400 {
		t.Fatalf("first line subtotal = %d, want %d", got, 3*1800-400)
	}
	wantTotal := int64(3*1800-400) + 8500
	if sale.TotalCents != wantTotal {
		t.Fatalf("total = %d, want %d", sale.TotalCents, wantTotal)
	}
}

func TestCreateSaleRejectsDiscountExceedingLine(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-lapicero", Qty: 1, DiscountCents: 1000}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSaleInsufficientStockLeavesStockUntouched(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	// Second line overdraws Pedro Páramo (25 in stock), so the whole sale
	// must be rejected without debiting the first line.
	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines: []domain.SaleLineRequest{
			{ProductID: "prod-soledad", Qty: 5},
			{ProductID: "prod-pedro", Qty: 26},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected detailed stock error, got %T", err)
	}
	if stockErr.ProductName != "Pedro Páramo" || stockErr.Available != 25 || stockErr.Requested != 26 {
		t.Fatalf("unexpected stock error detail: %+v", stockErr)
	}

	product, err := svc.GetProduct(ctx, "prod-soledad")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 40 {
		t.Fatalf("stock mutated on failed sale: got %d, want 40", product.Stock)
	}
}

func TestVoidSaleRestoresStockAndIsFinal(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-mate7", Qty: 4}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	product, _ := svc.GetProduct(ctx, "prod-mate7")
	if product.Stock != 26 {
		t.Fatalf("stock after sale = %d, want 26", product.Stock)
	}

	voided, err := svc.VoidSale(ctx, sale.ID, domain.SaleVoidRequest{Reason: "customer returned order"})
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided || voided.VoidedAt == nil {
		t.Fatalf("void not recorded: %+v", voided)
	}

	product, _ = svc.GetProduct(ctx, "prod-mate7")
	if product.Stock != 30 {
		t.Fatalf("stock after void = %d, want 30", product.Stock)
	}

	_, err = svc.VoidSale(ctx, sale.ID, domain.SaleVoidRequest{Reason: "again"})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected second void to fail with invalid state, got %v", err)
	}
}

func TestVoidSaleRequiresReason(t *testing.T) {
	svc := newTestService()

	_, err := svc.VoidSale(cashierCtx(), "sale-x", domain.SaleVoidRequest{Reason: "   "})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListSalesNewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	var lastID string
	for i := 0; i < 3; i++ {
		sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
			PaymentMethod: domain.PaymentCash,
			Lines:         []domain.SaleLineRequest{{ProductID: "prod-lapicero", Qty: 1}},
		})
		if err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
		lastID = sale.ID
		time.Sleep(2 * time.Millisecond)
	}

	sales, err := svc.ListSales(ctx, 2)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(sales))
	}
	if sales[0].ID != lastID {
		t.Fatalf("expected newest sale first, got %s", sales[0].ID)
	}
}

func TestFilterSalesByPaymentAndStatus(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	cashSale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-cuaderno", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-cuaderno", Qty: 1}},
	}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.VoidSale(ctx, cashSale.ID, domain.SaleVoidRequest{Reason: "mis-ring"}); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	byPayment, err := svc.FilterSales(ctx, domain.SaleFilter{PaymentMethod: domain.PaymentCard})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(byPayment) != 1 || byPayment[0].PaymentMethod != domain.PaymentCard {
		t.Fatalf("payment filter returned %d sales", len(byPayment))
	}

	voidedOnly, err := svc.FilterSales(ctx, domain.SaleFilter{Status: domain.SaleStatusVoided})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(voidedOnly) != 1 || voidedOnly[0].ID != cashSale.ID {
		t.Fatalf("status filter returned wrong sales: %d", len(voidedOnly))
	}

	_, err = svc.FilterSales(ctx, domain.SaleFilter{Status: "pending"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestOneOpenSessionPerUser(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 5000)

	_, err := svc.OpenSession(ctx, domain.SessionOpenRequest{OpeningFloatCents: 1000})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected second open to fail, got %v", err)
	}

	// A different cashier can still open one.
	if _, err := svc.OpenSession(adminCtx(), domain.SessionOpenRequest{OpeningFloatCents: 1000}); err != nil {
		t.Fatalf("admin open session failed: %v", err)
	}
}

func TestGetActiveSessionReportsNone(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	_, found, err := svc.GetActiveSession(ctx)
	if err != nil {
		t.Fatalf("get active session failed: %v", err)
	}
	if found {
		t.Fatalf("expected no active session")
	}

	opened := openSession(t, svc, ctx, 2500)
	session, found, err := svc.GetActiveSession(ctx)
	if err != nil || !found {
		t.Fatalf("expected active session, found=%t err=%v", found, err)
	}
	if session.ID != opened.ID {
		t.Fatalf("active session id = %s, want %s", session.ID, opened.ID)
	}
}

func TestCloseSessionReconciliation(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 10000)

	// One completed cash sale counts toward expected cash.
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-cuaderno", Qty: 1, DiscountCents: 800}},
	}); err != nil {
		t.Fatalf("cash sale failed: %v", err)
	}
	// Card sales never touch the drawer.
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-soledad", Qty: 1}},
	}); err != nil {
		t.Fatalf("card sale failed: %v", err)
	}

	closed, err := svc.CloseSession(ctx, domain.SessionCloseRequest{CountedCents: 11200})
	if err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	if closed.ExpectedCents != 11000 {
		t.Fatalf("expected cents = %d, want 11000", closed.ExpectedCents)
	}
	if closed.VarianceCents != 200 {
		t.Fatalf("variance = %d, want 200", closed.VarianceCents)
	}
	if closed.Status != domain.SessionStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("session not closed: %+v", closed)
	}

	_, err = svc.CloseSession(ctx, domain.SessionCloseRequest{CountedCents: 0})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected close without open session to fail, got %v", err)
	}
}

// An explicit session id closes that session regardless of who opened it,
// so an admin can reconcile a cashier's abandoned drawer.
func TestCloseSessionByExplicitID(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	session := openSession(t, svc, ctx, 5000)

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-cuaderno", Qty: 1}},
	}); err != nil {
		t.Fatalf("cash sale failed: %v", err)
	}

	closed, err := svc.CloseSession(adminCtx(), domain.SessionCloseRequest{
		SessionID:    session.ID,
		CountedCents: 6800,
	})
	if err != nil {
		t.Fatalf("close by id failed: %v", err)
	}
	if closed.ID != session.ID {
		t.Fatalf("closed session id = %s, want %s", closed.ID, session.ID)
	}
	if closed.ExpectedCents != 6800 || closed.VarianceCents != 0 {
		t.Fatalf("expected=%d variance=%d, want 6800/0", closed.ExpectedCents, closed.VarianceCents)
	}
	if closed.ClosedBy != "admin" {
		t.Fatalf("closed by = %s, want admin", closed.ClosedBy)
	}

	_, found, err := svc.GetActiveSession(ctx)
	if err != nil {
		t.Fatalf("active session lookup failed: %v", err)
	}
	if found {
		t.Fatalf("cashier still has an active session after admin close")
	}
}

func TestCloseSessionUnknownIDIsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.CloseSession(adminCtx(), domain.SessionCloseRequest{
		SessionID:    "sess-missing",
		CountedCents: 0,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown session id, got %v", err)
	}
}

func TestVoidedCashSaleDoesNotCountTowardDrawer(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 5000)

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-principito", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("cash sale failed: %v", err)
	}
	if _, err := svc.VoidSale(ctx, sale.ID, domain.SaleVoidRequest{Reason: "wrong item"}); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	closed, err := svc.CloseSession(ctx, domain.SessionCloseRequest{CountedCents: 5000})
	if err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	if closed.ExpectedCents != 5000 || closed.VarianceCents != 0 {
		t.Fatalf("voided sale leaked into drawer: expected=%d variance=%d", closed.ExpectedCents, closed.VarianceCents)
	}
}

func TestGetStatisticsComparesPriorWindow(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-soledad", Qty: 2}},
	}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	now := time.Now().UTC()
	stats, err := svc.GetStatistics(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalCents != 30000 || stats.TransactionCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.AverageTicketCents != 30000 {
		t.Fatalf("average ticket = %d, want 30000", stats.AverageTicketCents)
	}
	// No revenue in the prior two-hour window means no percent comparison.
	if stats.ChangeFromPriorPct != 0 {
		t.Fatalf("change = %f, want 0", stats.ChangeFromPriorPct)
	}

	_, err = svc.GetStatistics(ctx, now, now)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty window, got %v", err)
	}
}

func TestTopSellingProductsOrderAndLimit(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines: []domain.SaleLineRequest{
			{ProductID: "prod-lapicero", Qty: 12},
			{ProductID: "prod-cuaderno", Qty: 3},
		},
	}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-cuaderno", Qty: 2}},
	}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	now := time.Now().UTC()
	top, err := svc.TopSellingProducts(ctx, now.Add(-time.Hour), now.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("top products failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 products, got %d", len(top))
	}
	if top[0].ProductID != "prod-lapicero" || top[0].QtySold != 12 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	if top[1].ProductID != "prod-cuaderno" || top[1].QtySold != 5 {
		t.Fatalf("expected cuaderno quantities merged across sales: %+v", top[1])
	}

	capped, err := svc.TopSellingProducts(ctx, now.Add(-time.Hour), now.Add(time.Hour), 1)
	if err != nil {
		t.Fatalf("top products failed: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("expected limit 1, got %d", len(capped))
	}
}

func TestSalesByPaymentMethodExcludesVoided(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-principito", Qty: 2}},
	}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	cardSale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		PaymentMethod: domain.PaymentCard,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-principito", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.VoidSale(ctx, cardSale.ID, domain.SaleVoidRequest{Reason: "declined after print"}); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	now := time.Now().UTC()
	breakdown, err := svc.SalesByPaymentMethod(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("payment breakdown failed: %v", err)
	}
	if len(breakdown) != 1 {
		t.Fatalf("expected voided card sale excluded, got %d rows", len(breakdown))
	}
	if breakdown[0].PaymentMethod != domain.PaymentCash || breakdown[0].TotalCents != 17000 {
		t.Fatalf("unexpected breakdown row: %+v", breakdown[0])
	}
}

func TestAdjustStockRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.AdjustStock(cashierCtx(), domain.InventoryAdjustmentRequest{
		ProductID: "prod-soledad",
		DeltaQty:  5,
		Reason:    "recount",
	})
	if err == nil {
		t.Fatalf("expected cashier adjustment to be rejected")
	}

	adj, err := svc.AdjustStock(adminCtx(), domain.InventoryAdjustmentRequest{
		ProductID: "prod-soledad",
		DeltaQty:  -3,
		Reason:    "water damage",
	})
	if err != nil {
		t.Fatalf("admin adjustment failed: %v", err)
	}
	if adj.ProductName != "Cien Años de Soledad" {
		t.Fatalf("adjustment missing product name: %+v", adj)
	}

	product, err := svc.GetProduct(adminCtx(), "prod-soledad")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 37 {
		t.Fatalf("stock after adjustment = %d, want 37", product.Stock)
	}
}

func TestAdjustStockRejectsOverdraw(t *testing.T) {
	svc := newTestService()

	_, err := svc.AdjustStock(adminCtx(), domain.InventoryAdjustmentRequest{
		ProductID: "prod-pedro",
		DeltaQty:  -100,
		Reason:    "bad count",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{Name: "No SKU", SalePriceCents: 100})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		SKU:            "LIB-0100",
		Name:           "Rayuela",
		CategoryID:     "cat-novela",
		SalePriceCents: 18000,
		InitialStock:   12,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if !product.Active || product.Stock != 12 {
		t.Fatalf("unexpected product: %+v", product)
	}
}

func TestUpdateCustomerTierAffectsNewSales(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	tier := domain.TierWholesale
	if _, err := svc.UpdateCustomer(adminCtx(), "cust-cf", domain.CustomerUpdateRequest{PriceTier: &tier}); err != nil {
		t.Fatalf("update customer failed: %v", err)
	}

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		CustomerID:    "cust-cf",
		PaymentMethod: domain.PaymentCash,
		Lines:         []domain.SaleLineRequest{{ProductID: "prod-soledad", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.Lines[0].UnitPriceCents != 12500 {
		t.Fatalf("expected wholesale price after tier change, got %d", sale.Lines[0].UnitPriceCents)
	}
}

func TestListAuditLogsAdminOnly(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	openSession(t, svc, ctx, 0)

	if _, err := svc.ListAuditLogs(ctx, time.Time{}, time.Time{}, 10); err == nil {
		t.Fatalf("expected cashier audit listing to be rejected")
	}

	logs, err := svc.ListAuditLogs(adminCtx(), time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	// The session_open entry from the cashier above must be present.
	found := false
	for _, entry := range logs {
		if entry.Action == "session_open" && entry.ActorUsername == "cashier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session_open audit entry, got %d entries", len(logs))
	}
}
