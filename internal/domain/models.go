package domain

import "time"

type Product struct {
	ID                  string    `json:"id"`
	SKU                 string    `json:"sku"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	CategoryID          string    `json:"category_id,omitempty"`
	SalePriceCents      int64     `json:"sale_price_cents"`
	WholesalePriceCents int64     `json:"wholesale_price_cents"`
	CostPriceCents      int64     `json:"cost_price_cents"`
	Stock               int       `json:"stock"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU                 string `json:"sku"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	CategoryID          string `json:"category_id"`
	SalePriceCents      int64  `json:"sale_price_cents"`
	WholesalePriceCents int64  `json:"wholesale_price_cents"`
	CostPriceCents      int64  `json:"cost_price_cents"`
	InitialStock        int    `json:"initial_stock"`
}

type ProductUpdateRequest struct {
	Name                *string `json:"name,omitempty"`
	Description         *string `json:"description,omitempty"`
	CategoryID          *string `json:"category_id,omitempty"`
	SalePriceCents      *int64  `json:"sale_price_cents,omitempty"`
	WholesalePriceCents *int64  `json:"wholesale_price_cents,omitempty"`
	CostPriceCents      *int64  `json:"cost_price_cents,omitempty"`
	Active              *bool   `json:"active,omitempty"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type Customer struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	TaxID     string    `json:"tax_id"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	PriceTier string    `json:"price_tier"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	FullName  string `json:"full_name"`
	TaxID     string `json:"tax_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	PriceTier string `json:"price_tier"`
}

type CustomerUpdateRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	TaxID     *string `json:"tax_id,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	PriceTier *string `json:"price_tier,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type SaleLine struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Sale struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	CustomerID      string     `json:"customer_id"`
	CustomerName    string     `json:"customer_name"`
	CashierUsername string     `json:"cashier_username"`
	PaymentMethod   string     `json:"payment_method"`
	TotalCents      int64      `json:"total_cents"`
	Status          string     `json:"status"`
	VoidReason      string     `json:"void_reason,omitempty"`
	VoidedBy        string     `json:"voided_by,omitempty"`
	VoidedAt        *time.Time `json:"voided_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Lines           []SaleLine `json:"lines"`
}

type SaleLineRequest struct {
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
	DiscountCents int64  `json:"discount_cents"`
}

type SaleCreateRequest struct {
	CustomerID    string            `json:"customer_id"`
	SessionID     string            `json:"session_id,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Lines         []SaleLineRequest `json:"lines"`
}

type SaleVoidRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

// SaleFilter holds optional criteria; zero values mean "no constraint".
type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	CustomerID    string
	PaymentMethod string
	Status        string
}

type SalesStatistics struct {
	TotalCents         int64   `json:"total_cents"`
	TransactionCount   int     `json:"transaction_count"`
	AverageTicketCents int64   `json:"average_ticket_cents"`
	ChangeFromPriorPct float64 `json:"change_from_prior_pct"`
}

// DailyReport is the end-of-day summary handed to the back office, one
// calendar day in UTC.
type DailyReport struct {
	Date               string               `json:"date"`
	TransactionCount   int                  `json:"transaction_count"`
	GrossSalesCents    int64                `json:"gross_sales_cents"`
	AverageTicketCents int64                `json:"average_ticket_cents"`
	ChangeFromPriorPct float64              `json:"change_from_prior_pct"`
	ByPayment          []PaymentMethodTotal `json:"by_payment"`
	TopProducts        []TopProduct         `json:"top_products"`
}

type TopProduct struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	QtySold     int    `json:"qty_sold"`
	TotalCents  int64  `json:"total_cents"`
}

type PaymentMethodTotal struct {
	PaymentMethod string `json:"payment_method"`
	SaleCount     int    `json:"sale_count"`
	TotalCents    int64  `json:"total_cents"`
}

type CashSession struct {
	ID                string     `json:"id"`
	OpenedBy          string     `json:"opened_by"`
	OpenedAt          time.Time  `json:"opened_at"`
	OpeningFloatCents int64      `json:"opening_float_cents"`
	Status            string     `json:"status"`
	ClosedBy          string     `json:"closed_by,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	ExpectedCents     int64      `json:"expected_cents"`
	CountedCents      int64      `json:"counted_cents"`
	VarianceCents     int64      `json:"variance_cents"`
}

type SessionOpenRequest struct {
	OpeningFloatCents int64 `json:"opening_float_cents"`
}

type SessionCloseRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	CountedCents int64  `json:"counted_cents"`
}

type InventoryAdjustment struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	DeltaQty      int       `json:"delta_qty"`
	Reason        string    `json:"reason"`
	ActorUsername string    `json:"actor_username"`
	CreatedAt     time.Time `json:"created_at"`
}

type InventoryAdjustmentRequest struct {
	ProductID string `json:"product_id"`
	DeltaQty  int    `json:"delta_qty"`
	Reason    string `json:"reason"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	TierRetail    = "retail"
	TierWholesale = "wholesale"
	TierCost      = "cost"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
)

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)
