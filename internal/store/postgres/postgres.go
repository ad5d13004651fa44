package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"libreriapos/backend/internal/domain"
	"libreriapos/backend/internal/store"
	"libreriapos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// ensureSchema creates the tables and indexes on startup so a fresh
// database is usable without a separate migration step. All statements
// are idempotent.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			category_id TEXT REFERENCES categories(id),
			sale_price_cents BIGINT NOT NULL,
			wholesale_price_cents BIGINT NOT NULL DEFAULT 0,
			cost_price_cents BIGINT NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			tax_id TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			price_tier TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cash_sessions (
			id TEXT PRIMARY KEY,
			opened_by TEXT NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			opening_float_cents BIGINT NOT NULL,
			status TEXT NOT NULL,
			closed_by TEXT,
			closed_at TIMESTAMPTZ,
			expected_cents BIGINT NOT NULL DEFAULT 0,
			counted_cents BIGINT NOT NULL DEFAULT 0,
			variance_cents BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS cash_sessions_one_open_per_user
			ON cash_sessions (opened_by) WHERE status = 'open'`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES cash_sessions(id),
			customer_id TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			cashier_username TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			total_cents BIGINT NOT NULL,
			status TEXT NOT NULL,
			void_reason TEXT,
			voided_by TEXT,
			voided_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS sales_session_idx ON sales (session_id)`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
			id BIGSERIAL PRIMARY KEY,
			sale_id TEXT NOT NULL REFERENCES sales(id),
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			qty INTEGER NOT NULL CHECK (qty > 0),
			unit_price_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			subtotal_cents BIGINT NOT NULL CHECK (subtotal_cents >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS sale_lines_sale_idx ON sale_lines (sale_id)`,
		`CREATE TABLE IF NOT EXISTS inventory_adjustments (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			delta_qty INTEGER NOT NULL,
			reason TEXT NOT NULL,
			actor_username TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_username TEXT NOT NULL,
			actor_role TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS audit_logs_created_at_idx ON audit_logs (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS app_users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, sku, name, COALESCE(description,''), COALESCE(category_id,''),
	sale_price_cents, wholesale_price_cents, cost_price_cents, stock, active, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.SalePriceCents,
		&p.WholesalePriceCents,
		&p.CostPriceCents,
		&p.Stock,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.SalePriceCents < 1 {
		return nil, store.ErrInvalidState
	}
	if product.WholesalePriceCents < 0 || product.CostPriceCents < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidState
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, description, category_id, sale_price_cents,
			wholesale_price_cents, cost_price_cents, stock, active, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, product.ID, product.SKU, product.Name, nullIfEmpty(product.Description), nullIfEmpty(product.CategoryID),
		product.SalePriceCents, product.WholesalePriceCents, product.CostPriceCents,
		product.Stock, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidState
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SalePriceCents < 1 {
		return nil, store.ErrInvalidState
	}
	if product.WholesalePriceCents < 0 || product.CostPriceCents < 0 {
		return nil, store.ErrInvalidState
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, sale_price_cents = $5,
			wholesale_price_cents = $6, cost_price_cents = $7, active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, product.ID, product.Name, nullIfEmpty(product.Description), nullIfEmpty(product.CategoryID),
		product.SalePriceCents, product.WholesalePriceCents, product.CostPriceCents, product.Active)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category_id, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidState
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1,$2,$3)
	`, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidState
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

const customerColumns = `id, full_name, tax_id, COALESCE(phone,''), COALESCE(email,''), price_tier, active, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.FullName, &c.TaxID, &c.Phone, &c.Email, &c.PriceTier, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, tax_id, phone, email, price_tier, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, customer.ID, customer.FullName, customer.TaxID, nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Email), customer.PriceTier, customer.Active, customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.FullName) == "" {
		return nil, store.ErrInvalidState
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET full_name = $2, tax_id = $3, phone = $4, email = $5, price_tier = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns+`
	`, customer.ID, customer.FullName, customer.TaxID, nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Email), customer.PriceTier, customer.Active)
	updated, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE active = true
		ORDER BY full_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// CreateSale locks the product rows, re-checks stock under the lock, debits
// it and inserts the sale and its lines in one serializable transaction.
// A concurrent sale against the same product blocks on the row lock, so the
// stock check can never be stale by the time the debit runs.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Lines) == 0 {
		return nil, store.ErrInvalidState
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var sessionStatus string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status
		FROM cash_sessions
		WHERE id = $1
	`, sale.SessionID).Scan(&sessionStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if sessionStatus != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}

	productIDs := uniqueProductIDs(sale.Lines)
	if len(productIDs) == 0 {
		return nil, store.ErrInvalidState
	}

	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, stock
		FROM products
		WHERE active = true AND id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return nil, err
	}
	type productState struct {
		name  string
		stock int
	}
	productMap := make(map[string]productState, len(productIDs))
	for productRows.Next() {
		var id, name string
		var stock int
		if err := productRows.Scan(&id, &name, &stock); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[id] = productState{name: name, stock: stock}
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	totalCents := int64(0)
	recomputed := make([]domain.SaleLine, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		if line.Qty < 1 || line.DiscountCents < 0 {
			return nil, store.ErrInvalidState
		}
		product, exists := productMap[line.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if product.stock < line.Qty {
			return nil, &store.InsufficientStockError{
				ProductName: product.name,
				Available:   product.stock,
				Requested:   line.Qty,
			}
		}
		subtotal := line.UnitPriceCents*int64(line.Qty) - line.DiscountCents
		if subtotal < 0 {
			return nil, store.ErrInvalidState
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, line.Qty, line.ProductID)
		if err != nil {
			return nil, err
		}
		product.stock -= line.Qty
		productMap[line.ProductID] = product

		recomputed = append(recomputed, domain.SaleLine{
			ProductID:      line.ProductID,
			ProductName:    product.name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
			SubtotalCents:  subtotal,
		})
		totalCents += subtotal
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Lines = recomputed
	sale.TotalCents = totalCents
	sale.Status = domain.SaleStatusCompleted

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, session_id, customer_id, customer_name, cashier_username,
			payment_method, total_cents, status, void_reason, voided_by, voided_at, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.SessionID, sale.CustomerID, sale.CustomerName, sale.CashierUsername,
		sale.PaymentMethod, sale.TotalCents, sale.Status, nullIfEmpty(sale.VoidReason),
		nullIfEmpty(sale.VoidedBy), nullTime(sale.VoidedAt), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range sale.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, product_id, product_name, qty, unit_price_cents, discount_cents, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, line.ProductID, line.ProductName, line.Qty, line.UnitPriceCents, line.DiscountCents, line.SubtotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) VoidSale(ctx context.Context, id string, reason string, voidedBy string, at time.Time) (*domain.Sale, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SaleStatusCompleted {
		return nil, store.ErrInvalidState
	}

	lineRows, err := pgTx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM sale_lines
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	type restock struct {
		productID string
		qty       int
	}
	restocks := make([]restock, 0, 8)
	for lineRows.Next() {
		var r restock
		if err := lineRows.Scan(&r.productID, &r.qty); err != nil {
			_ = lineRows.Close()
			return nil, err
		}
		restocks = append(restocks, r)
	}
	if err := lineRows.Err(); err != nil {
		_ = lineRows.Close()
		return nil, err
	}
	_ = lineRows.Close()

	_, err = pgTx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, void_reason = $3, voided_by = $4, voided_at = $5
		WHERE id = $1 AND status = $6
	`, id, domain.SaleStatusVoided, reason, voidedBy, at, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}

	for _, r := range restocks {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = now()
			WHERE id = $2
		`, r.qty, r.productID)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, id)
}

const saleColumns = `id, session_id, customer_id, customer_name, cashier_username,
	payment_method, total_cents, status, COALESCE(void_reason,''), COALESCE(voided_by,''), voided_at, created_at`

func scanSale(row interface{ Scan(...any) error }) (*domain.Sale, error) {
	var sale domain.Sale
	var voidedAt sql.NullTime
	err := row.Scan(
		&sale.ID,
		&sale.SessionID,
		&sale.CustomerID,
		&sale.CustomerName,
		&sale.CashierUsername,
		&sale.PaymentMethod,
		&sale.TotalCents,
		&sale.Status,
		&sale.VoidReason,
		&sale.VoidedBy,
		&voidedAt,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		sale.VoidedAt = &at
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return &sale, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	lines, err := s.loadSaleLines(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Lines = lines[sale.ID]
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return s.collectSales(ctx, rows)
}

func (s *Store) FilterSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	conditions := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return s.collectSales(ctx, rows)
}

func (s *Store) collectSales(ctx context.Context, rows *sql.Rows) ([]domain.Sale, error) {
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.loadSaleLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Lines = lines[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) loadSaleLines(ctx context.Context, saleIDs []string) (map[string][]domain.SaleLine, error) {
	result := make(map[string][]domain.SaleLine, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, product_name, qty, unit_price_cents, discount_cents, subtotal_cents
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY id ASC
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var line domain.SaleLine
		if err := rows.Scan(&saleID, &line.ProductID, &line.ProductName, &line.Qty, &line.UnitPriceCents, &line.DiscountCents, &line.SubtotalCents); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetSalesTotals(ctx context.Context, from time.Time, to time.Time) (int64, int, error) {
	var total int64
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0), COUNT(*)
		FROM sales
		WHERE status = $1 AND created_at >= $2 AND created_at < $3
	`, domain.SaleStatusCompleted, from, to).Scan(&total, &count)
	if err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

func (s *Store) TopSellingProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.product_id, l.product_name, SUM(l.qty) AS qty_sold, SUM(l.subtotal_cents) AS total_cents
		FROM sale_lines l
		JOIN sales v ON v.id = l.sale_id
		WHERE v.status = $1 AND v.created_at >= $2 AND v.created_at < $3
		GROUP BY l.product_id, l.product_name
		ORDER BY qty_sold DESC, total_cents DESC, l.product_name
		LIMIT $4
	`, domain.SaleStatusCompleted, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.TopProduct, 0, limit)
	for rows.Next() {
		var entry domain.TopProduct
		if err := rows.Scan(&entry.ProductID, &entry.ProductName, &entry.QtySold, &entry.TotalCents); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SalesByPaymentMethod(ctx context.Context, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE status = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, domain.SaleStatusCompleted, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.PaymentMethodTotal, 0, 4)
	for rows.Next() {
		var entry domain.PaymentMethodTotal
		if err := rows.Scan(&entry.PaymentMethod, &entry.SaleCount, &entry.TotalCents); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SumCashSales(ctx context.Context, sessionID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE session_id = $1 AND status = $2 AND payment_method = $3
	`, sessionID, domain.SaleStatusCompleted, domain.PaymentCash).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

const sessionColumns = `id, opened_by, opened_at, opening_float_cents, status,
	COALESCE(closed_by,''), closed_at, expected_cents, counted_cents, variance_cents`

func scanSession(row interface{ Scan(...any) error }) (*domain.CashSession, error) {
	var session domain.CashSession
	var closedAt sql.NullTime
	err := row.Scan(
		&session.ID,
		&session.OpenedBy,
		&session.OpenedAt,
		&session.OpeningFloatCents,
		&session.Status,
		&session.ClosedBy,
		&closedAt,
		&session.ExpectedCents,
		&session.CountedCents,
		&session.VarianceCents,
	)
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		session.ClosedAt = &at
	}
	session.OpenedAt = session.OpenedAt.UTC()
	return &session, nil
}

func (s *Store) CreateSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error) {
	if strings.TrimSpace(session.OpenedBy) == "" || session.OpeningFloatCents < 0 {
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

	// cash_sessions carries a partial unique index on opened_by where
	// status = 'open', so a second open session for the same user fails
	// with a unique violation here.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_sessions (
			id, opened_by, opened_at, opening_float_cents, status,
			closed_by, closed_at, expected_cents, counted_cents, variance_cents
		)
		VALUES ($1,$2,$3,$4,$5,NULL,NULL,$6,0,0)
	`, session.ID, session.OpenedBy, session.OpenedAt, session.OpeningFloatCents,
		session.Status, session.ExpectedCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidState
		}
		return nil, err
	}
	saved := session
	return &saved, nil
}

func (s *Store) GetActiveSessionByUser(ctx context.Context, username string) (*domain.CashSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM cash_sessions
		WHERE opened_by = $1 AND status = $2
		ORDER BY opened_at DESC
		LIMIT 1
	`, username, domain.SessionStatusOpen)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	cash, err := s.SumCashSales(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.ExpectedCents = session.OpeningFloatCents + cash
	return session, nil
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (*domain.CashSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM cash_sessions
		WHERE id = $1
	`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if session.Status == domain.SessionStatusOpen {
		cash, err := s.SumCashSales(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		session.ExpectedCents = session.OpeningFloatCents + cash
	}
	return session, nil
}

// CloseSession sums the session's completed cash sales inside the same
// serializable transaction that flips the session to closed, so the
// recorded expected amount cannot miss a sale committed mid-close.
func (s *Store) CloseSession(ctx context.Context, id string, closedBy string, countedCents int64, at time.Time) (*domain.CashSession, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	var openingFloat int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT status, opening_float_cents
		FROM cash_sessions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status, &openingFloat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SessionStatusOpen {
		return nil, store.ErrInvalidState
	}

	var cash int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE session_id = $1 AND status = $2 AND payment_method = $3
	`, id, domain.SaleStatusCompleted, domain.PaymentCash).Scan(&cash)
	if err != nil {
		return nil, err
	}

	expected := openingFloat + cash
	variance := countedCents - expected

	row := pgTx.QueryRowContext(ctx, `
		UPDATE cash_sessions
		SET status = $2, closed_by = $3, closed_at = $4,
			expected_cents = $5, counted_cents = $6, variance_cents = $7
		WHERE id = $1
		RETURNING `+sessionColumns+`
	`, id, domain.SessionStatusClosed, closedBy, at, expected, countedCents, variance)
	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) CreateInventoryAdjustment(ctx context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, error) {
	if adj.DeltaQty == 0 || strings.TrimSpace(adj.Reason) == "" {
		return nil, store.ErrInvalidState
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var name string
	var stock int
	err = pgTx.QueryRowContext(ctx, `
		SELECT name, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, adj.ProductID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if stock+adj.DeltaQty < 0 {
		return nil, &store.InsufficientStockError{
			ProductName: name,
			Available:   stock,
			Requested:   -adj.DeltaQty,
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = now()
		WHERE id = $2
	`, adj.DeltaQty, adj.ProductID)
	if err != nil {
		return nil, err
	}

	if adj.ID == "" {
		adj.ID = xid.New("adj")
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	adj.ProductName = name

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO inventory_adjustments (id, product_id, product_name, delta_qty, reason, actor_username, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, adj.ID, adj.ProductID, adj.ProductName, adj.DeltaQty, adj.Reason, adj.ActorUsername, adj.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := adj
	return &created, nil
}

func (s *Store) ListInventoryAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, delta_qty, reason, actor_username, created_at
		FROM inventory_adjustments
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.InventoryAdjustment, 0, limit)
	for rows.Next() {
		var adj domain.InventoryAdjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.ProductName, &adj.DeltaQty, &adj.Reason, &adj.ActorUsername, &adj.CreatedAt); err != nil {
			return nil, err
		}
		adj.CreatedAt = adj.CreatedAt.UTC()
		result = append(result, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidState
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidState
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidState
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueProductIDs(lines []domain.SaleLine) []string {
	if len(lines) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			continue
		}
		set[line.ProductID] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
