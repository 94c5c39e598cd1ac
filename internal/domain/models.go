package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type SaleCreateRequest struct {
	SaleNumber   string            `json:"sale_number"`
	SaleDate     time.Time         `json:"sale_date,omitempty"`
	CustomerID   string            `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	BranchID     string            `json:"branch_id"`
	BranchName   string            `json:"branch_name"`
	Items        []SaleItemRequest `json:"items"`
}

type SaleUpdateRequest struct {
	SaleNumber   *string           `json:"sale_number,omitempty"`
	SaleDate     *time.Time        `json:"sale_date,omitempty"`
	CustomerID   *string           `json:"customer_id,omitempty"`
	CustomerName *string           `json:"customer_name,omitempty"`
	BranchID     *string           `json:"branch_id,omitempty"`
	BranchName   *string           `json:"branch_name,omitempty"`
	Items        []SaleItemRequest `json:"items"`
}

type SaleItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Cancelled       bool            `json:"cancelled"`
}

type SaleResponse struct {
	ID           string             `json:"id"`
	SaleNumber   string             `json:"sale_number"`
	SaleDate     time.Time          `json:"sale_date"`
	CustomerID   string             `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	BranchID     string             `json:"branch_id"`
	BranchName   string             `json:"branch_name"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	Cancelled    bool               `json:"cancelled"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Items        []SaleItemResponse `json:"items"`
}

type SaleListResponse struct {
	Sales []SaleResponse `json:"sales"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
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

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorUser struct {
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

// SaleEvent is the integration-event payload published after a successful
// mutation. ItemID is set only for item-level cancellations.
type SaleEvent struct {
	Type        string          `json:"type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	SaleID      string          `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	CustomerID  string          `json:"customer_id"`
	BranchID    string          `json:"branch_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Cancelled   bool            `json:"cancelled"`
	ItemID      string          `json:"item_id,omitempty"`
}

const (
	EventSaleCreated       = "sale.created"
	EventSaleModified      = "sale.modified"
	EventSaleCancelled     = "sale.cancelled"
	EventSaleItemCancelled = "sale.item_cancelled"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)
