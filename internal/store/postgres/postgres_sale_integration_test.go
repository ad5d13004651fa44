package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store"
)

func TestSaleDebitAndVoidRestock(t *testing.T) {
	databaseURL := os.Getenv("LIBRERIAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LIBRERIAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	sku := fmt.Sprintf("SKU-VOID-IT-%d", stamp)
	cashier := fmt.Sprintf("cashier-it-%d", stamp)

	product, err := s.CreateProduct(ctx, domain.Product{
		SKU:            sku,
		Name:           "Libro Void IT",
		SalePriceCents: 12000,
		Stock:          10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	session, err := s.CreateSession(ctx, domain.CashSession{
		OpenedBy:          cashier,
		OpeningFloatCents: 5000,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_lines WHERE product_id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE session_id = $1`, session.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_sessions WHERE id = $1`, session.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	})

	sale, err := s.CreateSale(ctx, domain.Sale{
		SessionID:       session.ID,
		CashierUsername: cashier,
		PaymentMethod:   domain.PaymentCash,
		Lines: []domain.SaleLine{
			{ProductID: product.ID, Qty: 2, UnitPriceCents: 12000},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.TotalCents != 24000 {
		t.Fatalf("total = %d, want 24000", sale.TotalCents)
	}

	afterSale, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if afterSale.Stock != 8 {
		t.Fatalf("stock after sale = %d, want 8", afterSale.Stock)
	}

	voided, err := s.VoidSale(ctx, sale.ID, "integration test void", cashier, time.Now().UTC())
	if err != nil {
		t.Fatalf("void sale: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided {
		t.Fatalf("status = %s, want voided", voided.Status)
	}

	afterVoid, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if afterVoid.Stock != 10 {
		t.Fatalf("stock after void = %d, want 10", afterVoid.Stock)
	}

	if _, err := s.VoidSale(ctx, sale.ID, "again", cashier, time.Now().UTC()); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected second void to fail with invalid state, got %v", err)
	}

	closed, err := s.CloseSession(ctx, session.ID, cashier, 5000, time.Now().UTC())
	if err != nil {
		t.Fatalf("close session: %v", err)
	}
	if closed.ExpectedCents != 5000 || closed.VarianceCents != 0 {
		t.Fatalf("voided sale counted toward drawer: %+v", closed)
	}
}
