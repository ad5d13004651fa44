package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/reports"
	"libreriapos/backend/internal/store"
	"libreriapos/backend/internal/xid"
)

// ErrValidation marks request-shape problems the caller can fix. Handlers
// map it to a 400 while store sentinels keep their own statuses.
var ErrValidation = errors.New("validation failed")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports *reports.Engine
}

func New(repo store.Repository, reportsEngine *reports.Engine) *Service {
	if reportsEngine == nil {
		reportsEngine = reports.NewEngine(repo, nil, 0)
	}
	return &Service{repo: repo, reports: reportsEngine}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: sku and name are required", ErrValidation)
	}
	if req.SalePriceCents < 1 {
		return domain.Product{}, fmt.Errorf("%w: sale price must be positive", ErrValidation)
	}
	if req.WholesalePriceCents < 0 || req.CostPriceCents < 0 || req.InitialStock < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices and stock cannot be negative", ErrValidation)
	}

	product := domain.Product{
		ID:                  xid.New("prod"),
		SKU:                 req.SKU,
		Name:                req.Name,
		Description:         strings.TrimSpace(req.Description),
		CategoryID:          strings.TrimSpace(req.CategoryID),
		SalePriceCents:      req.SalePriceCents,
		WholesalePriceCents: req.WholesalePriceCents,
		CostPriceCents:      req.CostPriceCents,
		Stock:               req.InitialStock,
		Active:              true,
		CreatedAt:           time.Now().UTC(),
	}

	saved, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", saved.ID, fmt.Sprintf("sku=%s,stock=%d", saved.SKU, saved.Stock))
	return *saved, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id required", ErrValidation)
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	product := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.CategoryID != nil {
		product.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.SalePriceCents != nil {
		if *req.SalePriceCents < 1 {
			return domain.Product{}, fmt.Errorf("%w: sale price must be positive", ErrValidation)
		}
		product.SalePriceCents = *req.SalePriceCents
	}
	if req.WholesalePriceCents != nil {
		if *req.WholesalePriceCents < 0 {
			return domain.Product{}, fmt.Errorf("%w: wholesale price cannot be negative", ErrValidation)
		}
		product.WholesalePriceCents = *req.WholesalePriceCents
	}
	if req.CostPriceCents != nil {
		if *req.CostPriceCents < 0 {
			return domain.Product{}, fmt.Errorf("%w: cost price cannot be negative", ErrValidation)
		}
		product.CostPriceCents = *req.CostPriceCents
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("sku=%s,active=%t", saved.SKU, saved.Active))
	return *saved, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id required", ErrValidation)
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name required", ErrValidation)
	}

	saved, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:        xid.New("cat"),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Category{}, err
	}
	return *saved, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name required", ErrValidation)
	}
	tier := strings.TrimSpace(req.PriceTier)
	if tier == "" {
		tier = domain.TierRetail
	}
	if !domain.ValidPriceTier(tier) {
		return domain.Customer{}, fmt.Errorf("%w: unknown price tier %q", ErrValidation, tier)
	}

	saved, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cust"),
		FullName:  req.FullName,
		TaxID:     strings.TrimSpace(req.TaxID),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		PriceTier: tier,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", saved.ID, fmt.Sprintf("tier=%s", saved.PriceTier))
	return *saved, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id required", ErrValidation)
	}

	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer := *existing
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return domain.Customer{}, fmt.Errorf("%w: customer name cannot be empty", ErrValidation)
		}
		customer.FullName = name
	}
	if req.TaxID != nil {
		customer.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		customer.Email = strings.TrimSpace(*req.Email)
	}
	if req.PriceTier != nil {
		tier := strings.TrimSpace(*req.PriceTier)
		if !domain.ValidPriceTier(tier) {
			return domain.Customer{}, fmt.Errorf("%w: unknown price tier %q", ErrValidation, tier)
		}
		customer.PriceTier = tier
	}
	if req.Active != nil {
		customer.Active = *req.Active
	}

	saved, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_update", "customer", saved.ID, fmt.Sprintf("tier=%s,active=%t", saved.PriceTier, saved.Active))
	return *saved, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	if id == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer id required", ErrValidation)
	}
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// CreateSale prices every line from the customer's tier, then hands the
// priced sale to the repository, which debits stock and persists the sale
// as one atomic step. The walk-in default is the retail tier.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if len(req.Lines) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.Sale{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.PaymentMethod)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("%w: authenticated cashier required", ErrValidation)
	}

	tier := domain.TierRetail
	customerName := ""
	if req.CustomerID != "" {
		customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return domain.Sale{}, err
		}
		if !customer.Active {
			return domain.Sale{}, fmt.Errorf("customer %s is inactive: %w", customer.ID, store.ErrInvalidState)
		}
		tier = customer.PriceTier
		customerName = customer.FullName
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		session, err := s.repo.GetActiveSessionByUser(ctx, actor.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Sale{}, fmt.Errorf("open cash session required: %w", store.ErrInvalidState)
			}
			return domain.Sale{}, err
		}
		sessionID = session.ID
	}

	productIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" {
			return domain.Sale{}, fmt.Errorf("%w: product id required on every line", ErrValidation)
		}
		if line.Qty < 1 {
			return domain.Sale{}, fmt.Errorf("%w: qty must be at least 1", ErrValidation)
		}
		if line.DiscountCents < 0 {
			return domain.Sale{}, fmt.Errorf("%w: discount cannot be negative", ErrValidation)
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.Sale{}, err
	}

	lines := make([]domain.SaleLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, exists := products[line.ProductID]
		if !exists || !product.Active {
			return domain.Sale{}, fmt.Errorf("product %s: %w", line.ProductID, store.ErrNotFound)
		}
		unitPrice := domain.UnitPriceCents(product, tier)
		subtotal := unitPrice*int64(line.Qty) - line.DiscountCents
		if subtotal < 0 {
			return domain.Sale{}, fmt.Errorf("%w: discount exceeds line amount for %s", ErrValidation, product.Name)
		}
		lines = append(lines, domain.SaleLine{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Qty:            line.Qty,
			UnitPriceCents: unitPrice,
			DiscountCents:  line.DiscountCents,
			SubtotalCents:  subtotal,
		})
	}

	sale := domain.Sale{
		ID:              xid.New("sale"),
		SessionID:       sessionID,
		CustomerID:      req.CustomerID,
		CustomerName:    customerName,
		CashierUsername: actor.Username,
		PaymentMethod:   req.PaymentMethod,
		Status:          domain.SaleStatusCompleted,
		CreatedAt:       time.Now().UTC(),
		Lines:           lines,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID,
		fmt.Sprintf("total=%d,payment=%s,lines=%d,tier=%s", created.TotalCents, created.PaymentMethod, len(created.Lines), tier))
	return *created, nil
}

// VoidSale marks a completed sale voided and restores the stock its lines
// consumed. A sale can only be voided once.
func (s *Service) VoidSale(ctx context.Context, id string, req domain.SaleVoidRequest) (domain.Sale, error) {
	if id == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id required", ErrValidation)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.Sale{}, fmt.Errorf("%w: void reason required", ErrValidation)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, fmt.Errorf("%w: authenticated cashier required", ErrValidation)
	}

	voided, err := s.repo.VoidSale(ctx, id, reason, actor.Username, time.Now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_void", "sale", voided.ID, reason)
	return *voided, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	if id == "" {
		return domain.Sale{}, fmt.Errorf("%w: sale id required", ErrValidation)
	}
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) FilterSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, fmt.Errorf("%w: from must precede to", ErrValidation)
	}
	if filter.Status != "" && filter.Status != domain.SaleStatusCompleted && filter.Status != domain.SaleStatusVoided {
		return nil, fmt.Errorf("%w: unknown sale status %q", ErrValidation, filter.Status)
	}
	if filter.PaymentMethod != "" && !domain.ValidPaymentMethod(filter.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, filter.PaymentMethod)
	}
	return s.repo.FilterSales(ctx, filter)
}

func (s *Service) GetStatistics(ctx context.Context, from time.Time, to time.Time) (domain.SalesStatistics, error) {
	if !from.Before(to) {
		return domain.SalesStatistics{}, fmt.Errorf("%w: from must precede to", ErrValidation)
	}
	return s.reports.Statistics(ctx, from, to)
}

func (s *Service) TopSellingProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must precede to", ErrValidation)
	}
	return s.reports.TopProducts(ctx, from, to, limit)
}

func (s *Service) SalesByPaymentMethod(ctx context.Context, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must precede to", ErrValidation)
	}
	return s.reports.PaymentMethods(ctx, from, to)
}

// DailyReport summarizes one UTC calendar day. An empty date means today.
func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(date) != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailyReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
		day = parsed.UTC()
	}
	from := day
	to := day.Add(24 * time.Hour)

	stats, err := s.reports.Statistics(ctx, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	byPayment, err := s.reports.PaymentMethods(ctx, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	topProducts, err := s.reports.TopProducts(ctx, from, to, 10)
	if err != nil {
		return domain.DailyReport{}, err
	}

	return domain.DailyReport{
		Date:               from.Format("2006-01-02"),
		TransactionCount:   stats.TransactionCount,
		GrossSalesCents:    stats.TotalCents,
		AverageTicketCents: stats.AverageTicketCents,
		ChangeFromPriorPct: stats.ChangeFromPriorPct,
		ByPayment:          byPayment,
		TopProducts:        topProducts,
	}, nil
}

func (s *Service) OpenSession(ctx context.Context, req domain.SessionOpenRequest) (domain.CashSession, error) {
	if req.OpeningFloatCents < 0 {
		return domain.CashSession{}, fmt.Errorf("%w: opening float cannot be negative", ErrValidation)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CashSession{}, fmt.Errorf("%w: authenticated cashier required", ErrValidation)
	}

	session := domain.CashSession{
		ID:                xid.New("sess"),
		OpenedBy:          actor.Username,
		OpenedAt:          time.Now().UTC(),
		OpeningFloatCents: req.OpeningFloatCents,
		Status:            domain.SessionStatusOpen,
	}

	created, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			return domain.CashSession{}, fmt.Errorf("session already open for %s: %w", actor.Username, store.ErrInvalidState)
		}
		return domain.CashSession{}, err
	}

	s.logAudit(ctx, "session_open", "cash_session", created.ID, fmt.Sprintf("opening_float=%d", created.OpeningFloatCents))
	return *created, nil
}

// GetActiveSession reports the caller's open session. found is false when
// the cashier has none, which is a normal state, not an error.
func (s *Service) GetActiveSession(ctx context.Context) (domain.CashSession, bool, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CashSession{}, false, fmt.Errorf("%w: authenticated cashier required", ErrValidation)
	}

	session, err := s.repo.GetActiveSessionByUser(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CashSession{}, false, nil
		}
		return domain.CashSession{}, false, err
	}
	return *session, true, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (domain.CashSession, error) {
	if id == "" {
		return domain.CashSession{}, fmt.Errorf("%w: session id required", ErrValidation)
	}
	session, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return domain.CashSession{}, err
	}
	return *session, nil
}

// CloseSession reconciles the drawer: expected cash is the opening float
// plus every completed cash sale in the session, variance is counted minus
// expected. The repository performs the sum and the close atomically.
// SessionID targets a specific session (an admin closing an abandoned
// drawer); when absent the caller's own open session is closed.
func (s *Service) CloseSession(ctx context.Context, req domain.SessionCloseRequest) (domain.CashSession, error) {
	if req.CountedCents < 0 {
		return domain.CashSession{}, fmt.Errorf("%w: counted amount cannot be negative", ErrValidation)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CashSession{}, fmt.Errorf("%w: authenticated cashier required", ErrValidation)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		session, err := s.repo.GetActiveSessionByUser(ctx, actor.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.CashSession{}, fmt.Errorf("no open session for %s: %w", actor.Username, store.ErrInvalidState)
			}
			return domain.CashSession{}, err
		}
		sessionID = session.ID
	}

	closed, err := s.repo.CloseSession(ctx, sessionID, actor.Username, req.CountedCents, time.Now().UTC())
	if err != nil {
		return domain.CashSession{}, err
	}

	s.logAudit(ctx, "session_close", "cash_session", closed.ID,
		fmt.Sprintf("expected=%d,counted=%d,variance=%d", closed.ExpectedCents, closed.CountedCents, closed.VarianceCents))
	return *closed, nil
}

// AdjustStock records a manual stock correction outside the sales flow,
// for breakage, recounts and received shipments.
func (s *Service) AdjustStock(ctx context.Context, req domain.InventoryAdjustmentRequest) (domain.InventoryAdjustment, error) {
	if req.ProductID == "" {
		return domain.InventoryAdjustment{}, fmt.Errorf("%w: product id required", ErrValidation)
	}
	if req.DeltaQty == 0 {
		return domain.InventoryAdjustment{}, fmt.Errorf("%w: delta cannot be zero", ErrValidation)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.InventoryAdjustment{}, fmt.Errorf("%w: adjustment reason required", ErrValidation)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.InventoryAdjustment{}, fmt.Errorf("%w: authenticated user required", ErrValidation)
	}
	if actor.Role != "admin" {
		return domain.InventoryAdjustment{}, fmt.Errorf("admin role required")
	}

	saved, err := s.repo.CreateInventoryAdjustment(ctx, domain.InventoryAdjustment{
		ID:            xid.New("adj"),
		ProductID:     req.ProductID,
		DeltaQty:      req.DeltaQty,
		Reason:        reason,
		ActorUsername: actor.Username,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return domain.InventoryAdjustment{}, err
	}

	s.logAudit(ctx, "stock_adjust", "product", saved.ProductID, fmt.Sprintf("delta=%d,reason=%s", saved.DeltaQty, saved.Reason))
	return *saved, nil
}

func (s *Service) ListInventoryAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListInventoryAdjustments(ctx, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 || limit > 1000 {
		limit = 200
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-30 * 24 * time.Hour)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must precede to", ErrValidation)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// logAudit never fails the caller; a lost audit row is logged and the
// business operation proceeds.
func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
