package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libreriapos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
)

// InsufficientStockError carries the details a cashier needs to resolve a
// rejected line. It unwraps to ErrInsufficientStock so callers can keep
// using errors.Is.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	VoidSale(ctx context.Context, id string, reason string, voidedBy string, at time.Time) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	FilterSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
	GetSalesTotals(ctx context.Context, from time.Time, to time.Time) (int64, int, error)
	TopSellingProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error)
	SalesByPaymentMethod(ctx context.Context, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error)
	SumCashSales(ctx context.Context, sessionID string) (int64, error)
	CreateSession(ctx context.Context, session domain.CashSession) (*domain.CashSession, error)
	GetActiveSessionByUser(ctx context.Context, username string) (*domain.CashSession, error)
	GetSessionByID(ctx context.Context, id string) (*domain.CashSession, error)
	CloseSession(ctx context.Context, id string, closedBy string, countedCents int64, at time.Time) (*domain.CashSession, error)
	CreateInventoryAdjustment(ctx context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, error)
	ListInventoryAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
