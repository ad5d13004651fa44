package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store"
	"libreriapos/backend/internal/xid"
)

type Store struct {
	mu                  sync.RWMutex
	productsByID        map[string]domain.Product
	productIDBySKU      map[string]string
	categoriesByID      map[string]domain.Category
	customersByID       map[string]domain.Customer
	salesByID           map[string]*domain.Sale
	sessionsByID        map[string]domain.CashSession
	activeSessionByUser map[string]string
	adjustments         []domain.InventoryAdjustment
	auditLogs           []domain.AuditLog
	usersByUsername     map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-novela", Name: "Novela", CreatedAt: now},
		{ID: "cat-infantil", Name: "Infantil", CreatedAt: now},
		{ID: "cat-texto", Name: "Texto Escolar", CreatedAt: now},
		{ID: "cat-papeleria", Name: "Papelería", CreatedAt: now},
	}

	products := []domain.Product{
		{ID: "prod-soledad", SKU: "LIB-0001", Name: "Cien Años de Soledad", CategoryID: "cat-novela", SalePriceCents: 15000, WholesalePriceCents: 12500, CostPriceCents: 9800, Stock: 40, Active: true, CreatedAt: now},
		{ID: "prod-pedro", SKU: "LIB-0002", Name: "Pedro Páramo", CategoryID: "cat-novela", SalePriceCents: 11000, WholesalePriceCents: 9200, CostPriceCents: 7100, Stock: 25, Active: true, CreatedAt: now},
		{ID: "prod-principito", SKU: "LIB-0003", Name: "El Principito", CategoryID: "cat-infantil", SalePriceCents: 8500, WholesalePriceCents: 7000, CostPriceCents: 5200, Stock: 60, Active: true, CreatedAt: now},
		{ID: "prod-mate7", SKU: "TXT-0007", Name: "Matemática 7mo Grado", CategoryID: "cat-texto", SalePriceCents: 22000, WholesalePriceCents: 18500, CostPriceCents: 14000, Stock: 30, Active: true, CreatedAt: now},
		{ID: "prod-cuaderno", SKU: "PAP-0101", Name: "Cuaderno Espiral 80h", CategoryID: "cat-papeleria", SalePriceCents: 1800, WholesalePriceCents: 1400, CostPriceCents: 950, Stock: 200, Active: true, CreatedAt: now},
		{ID: "prod-lapicero", SKU: "PAP-0102", Name: "Lapicero Azul", CategoryID: "cat-papeleria", SalePriceCents: 350, WholesalePriceCents: 250, Stock: 500, Active: true, CreatedAt: now},
	}

	customers := []domain.Customer{
		{ID: "cust-cf", FullName: "Consumidor Final", TaxID: "CF", PriceTier: domain.TierRetail, Active: true, CreatedAt: now},
		{ID: "cust-quetzal", FullName: "Distribuidora El Quetzal", TaxID: "4589201-3", PriceTier: domain.TierWholesale, Active: true, CreatedAt: now},
		{ID: "cust-escuela", FullName: "Escuela La Esperanza", TaxID: "7710345-K", PriceTier: domain.TierCost, Active: true, CreatedAt: now},
	}

	productMap := make(map[string]domain.Product, len(products))
	skuIndex := make(map[string]string, len(products))
	for _, p := range products {
		productMap[p.ID] = p
		skuIndex[p.SKU] = p.ID
	}
	categoryMap := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		productsByID:        productMap,
		productIDBySKU:      skuIndex,
		categoriesByID:      categoryMap,
		customersByID:       customerMap,
		salesByID:           make(map[string]*domain.Sale),
		sessionsByID:        make(map[string]domain.CashSession),
		activeSessionByUser: make(map[string]string),
		adjustments:         make([]domain.InventoryAdjustment, 0, 64),
		auditLogs:           make([]domain.AuditLog, 0, 128),
		usersByUsername:     seedUsers(),
	}
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.SalePriceCents < 1 {
		return nil, store.ErrInvalidState
	}
	if product.WholesalePriceCents < 0 || product.CostPriceCents < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidState
	}
	if _, exists := s.productIDBySKU[product.SKU]; exists {
		return nil, store.ErrInvalidState
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true
	s.productsByID[product.ID] = product
	s.productIDBySKU[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.productsByID[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.SalePriceCents < 1 {
		return nil, store.ErrInvalidState
	}
	if product.WholesalePriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrInvalidState
	}

	// SKU and stock are immutable here; stock moves only through sales,
	// voids and inventory adjustments.
	product.SKU = existing.SKU
	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryID == b.CategoryID {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.CategoryID, b.CategoryID)
	})

	return products, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.productsByID[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidState
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	s.categoriesByID[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(customer.FullName) == "" {
		return nil, store.ErrInvalidState
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.TaxID == "" {
		customer.TaxID = "CF"
	}
	if customer.PriceTier == "" {
		customer.PriceTier = domain.TierRetail
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.Active = true
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customersByID[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(customer.FullName) == "" {
		return nil, store.ErrInvalidState
	}
	customer.CreatedAt = existing.CreatedAt
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		if !c.Active {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.FullName, b.FullName)
	})
	return customers, nil
}

// CreateSale checks stock, debits it and records the sale under a single
// lock acquisition so a concurrent sale can never oversell the same product.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidState
	}

	session, ok := s.sessionsByID[sale.SessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if session.Status != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}

	total := int64(0)
	// Lines may repeat a product, so stock checks run against a running
	// remaining count rather than the stored value.
	remaining := make(map[string]int, len(sale.Lines))
	recomputed := make([]domain.SaleLine, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		if line.Qty < 1 || line.DiscountCents < 0 {
			return nil, store.ErrInvalidState
		}
		product, exists := s.productsByID[line.ProductID]
		if !exists || !product.Active {
			return nil, store.ErrNotFound
		}
		available, seen := remaining[line.ProductID]
		if !seen {
			available = product.Stock
		}
		if available < line.Qty {
			return nil, &store.InsufficientStockError{
				ProductName: product.Name,
				Available:   available,
				Requested:   line.Qty,
			}
		}
		remaining[line.ProductID] = available - line.Qty
		subtotal := line.UnitPriceCents*int64(line.Qty) - line.DiscountCents
		if subtotal < 0 {
			return nil, store.ErrInvalidState
		}
		recomputed = append(recomputed, domain.SaleLine{
			ProductID:      line.ProductID,
			ProductName:    product.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
			SubtotalCents:  subtotal,
		})
		total += subtotal
	}

	for _, line := range recomputed {
		product := s.productsByID[line.ProductID]
		product.Stock -= line.Qty
		s.productsByID[line.ProductID] = product
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Lines = recomputed
	sale.TotalCents = total
	sale.Status = domain.SaleStatusCompleted

	saleCopy := cloneSale(&sale)
	s.salesByID[sale.ID] = saleCopy

	return cloneSale(saleCopy), nil
}

func (s *Store) VoidSale(_ context.Context, id string, reason string, voidedBy string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, store.ErrInvalidState
	}

	for _, line := range sale.Lines {
		product, exists := s.productsByID[line.ProductID]
		if !exists {
			continue
		}
		product.Stock += line.Qty
		s.productsByID[line.ProductID] = product
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason
	sale.VoidedBy = voidedBy
	sale.VoidedAt = &at

	return cloneSale(sale), nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		result = append(result, *cloneSale(sale))
	}
	sortSalesNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) FilterSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sale.CreatedAt.Before(*filter.To) {
			continue
		}
		if filter.CustomerID != "" && sale.CustomerID != filter.CustomerID {
			continue
		}
		if filter.PaymentMethod != "" && sale.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		result = append(result, *cloneSale(sale))
	}
	sortSalesNewestFirst(result)
	return result, nil
}

func (s *Store) GetSalesTotals(_ context.Context, from time.Time, to time.Time) (int64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(0)
	count := 0
	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		total += sale.TotalCents
		count++
	}
	return total, count, nil
}

func (s *Store) TopSellingProducts(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[string]*domain.TopProduct)
	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		for _, line := range sale.Lines {
			entry, ok := agg[line.ProductID]
			if !ok {
				entry = &domain.TopProduct{ProductID: line.ProductID, ProductName: line.ProductName}
				agg[line.ProductID] = entry
			}
			entry.QtySold += line.Qty
			entry.TotalCents += line.SubtotalCents
		}
	}

	result := make([]domain.TopProduct, 0, len(agg))
	for _, entry := range agg {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.TopProduct) int {
		if a.QtySold != b.QtySold {
			return b.QtySold - a.QtySold
		}
		if a.TotalCents != b.TotalCents {
			if b.TotalCents > a.TotalCents {
				return 1
			}
			return -1
		}
		return cmpString(a.ProductName, b.ProductName)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SalesByPaymentMethod(_ context.Context, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[string]*domain.PaymentMethodTotal)
	for _, sale := range s.salesByID {
		if sale.Status != domain.SaleStatusCompleted {
			continue
		}
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		entry, ok := agg[sale.PaymentMethod]
		if !ok {
			entry = &domain.PaymentMethodTotal{PaymentMethod: sale.PaymentMethod}
			agg[sale.PaymentMethod] = entry
		}
		entry.SaleCount++
		entry.TotalCents += sale.TotalCents
	}

	result := make([]domain.PaymentMethodTotal, 0, len(agg))
	for _, entry := range agg {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.PaymentMethodTotal) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return result, nil
}

func (s *Store) SumCashSales(_ context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumCashSalesLocked(sessionID), nil
}

// sumCashSalesLocked requires s.mu to be held.
func (s *Store) sumCashSalesLocked(sessionID string) int64 {
	total := int64(0)
	for _, sale := range s.salesByID {
		if sale.SessionID != sessionID {
			continue
		}
		if sale.Status != domain.SaleStatusCompleted || sale.PaymentMethod != domain.PaymentCash {
			continue
		}
		total += sale.TotalCents
	}
	return total
}

func (s *Store) CreateSession(_ context.Context, session domain.CashSession) (*domain.CashSession, error) {
	if strings.TrimSpace(session.OpenedBy) == "" || session.OpeningFloatCents < 0 {
		return nil, store.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activeSessionByUser[session.OpenedBy]; exists {
		return nil, store.ErrInvalidState
	}
	if session.ID == "" {
		session.ID = xid.New("sess")
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}
	session.Status = domain.SessionStatusOpen
	session.ClosedAt = nil
	session.ClosedBy = ""
	session.ExpectedCents = session.OpeningFloatCents
	session.CountedCents = 0
	session.VarianceCents = 0

	s.sessionsByID[session.ID] = session
	s.activeSessionByUser[session.OpenedBy] = session.ID
	copySession := session
	return &copySession, nil
}

func (s *Store) GetActiveSessionByUser(_ context.Context, username string) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, exists := s.activeSessionByUser[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	session, exists := s.sessionsByID[sessionID]
	if !exists || session.Status != domain.SessionStatusOpen {
		return nil, store.ErrNotFound
	}
	session.ExpectedCents = session.OpeningFloatCents + s.sumCashSalesLocked(session.ID)
	copySession := session
	return &copySession, nil
}

func (s *Store) GetSessionByID(_ context.Context, id string) (*domain.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if session.Status == domain.SessionStatusOpen {
		session.ExpectedCents = session.OpeningFloatCents + s.sumCashSalesLocked(session.ID)
	}
	copySession := session
	return &copySession, nil
}

// CloseSession reconciles the drawer: expected cash is the opening float
// plus every completed cash sale in the session, variance is counted minus
// expected. The transition happens under the same lock as the cash sum so
// a concurrent sale cannot slip between the sum and the close.
func (s *Store) CloseSession(_ context.Context, id string, closedBy string, countedCents int64, at time.Time) (*domain.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if session.Status != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	expected := session.OpeningFloatCents + s.sumCashSalesLocked(id)
	session.Status = domain.SessionStatusClosed
	session.ClosedBy = closedBy
	session.ClosedAt = &at
	session.ExpectedCents = expected
	session.CountedCents = countedCents
	session.VarianceCents = countedCents - expected

	delete(s.activeSessionByUser, session.OpenedBy)
	s.sessionsByID[id] = session
	copySession := session
	return &copySession, nil
}

func (s *Store) CreateInventoryAdjustment(_ context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adj.DeltaQty == 0 || strings.TrimSpace(adj.Reason) == "" {
		return nil, store.ErrInvalidState
	}
	product, exists := s.productsByID[adj.ProductID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Stock+adj.DeltaQty < 0 {
		return nil, &store.InsufficientStockError{
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   -adj.DeltaQty,
		}
	}

	product.Stock += adj.DeltaQty
	s.productsByID[adj.ProductID] = product

	if adj.ID == "" {
		adj.ID = xid.New("adj")
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	adj.ProductName = product.Name
	s.adjustments = append(s.adjustments, adj)
	created := adj
	return &created, nil
}

func (s *Store) ListInventoryAdjustments(_ context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryAdjustment, len(s.adjustments))
	copy(result, s.adjustments)
	slices.SortFunc(result, func(a, b domain.InventoryAdjustment) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidState
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidState
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidState
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func sortSalesNewestFirst(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	dupLines := make([]domain.SaleLine, len(src.Lines))
	copy(dupLines, src.Lines)
	dup.Lines = dupLines
	if src.VoidedAt != nil {
		at := *src.VoidedAt
		dup.VoidedAt = &at
	}
	return &dup
}
