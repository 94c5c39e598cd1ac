package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a plain copy of the aggregate state for the persistence and
// presentation layers. It grants no mutation path back into the aggregate.
type Snapshot struct {
	ID           uuid.UUID
	SaleNumber   string
	SaleDate     time.Time
	CustomerID   string
	CustomerName string
	BranchID     string
	BranchName   string
	TotalAmount  decimal.Decimal
	Cancelled    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []ItemSnapshot
}

type ItemSnapshot struct {
	ID              uuid.UUID
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TotalAmount     decimal.Decimal
	Cancelled       bool
}

func (s *Sale) Snapshot() Snapshot {
	items := make([]ItemSnapshot, len(s.items))
	for i, item := range s.items {
		items[i] = ItemSnapshot{
			ID:              item.id,
			ProductID:       item.productID,
			ProductName:     item.productName,
			Quantity:        item.quantity,
			UnitPrice:       item.unitPrice,
			DiscountPercent: item.discountPercent,
			TotalAmount:     item.totalAmount,
			Cancelled:       item.cancelled,
		}
	}
	return Snapshot{
		ID:           s.id,
		SaleNumber:   s.saleNumber,
		SaleDate:     s.saleDate,
		CustomerID:   s.customerID,
		CustomerName: s.customerName,
		BranchID:     s.branchID,
		BranchName:   s.branchName,
		TotalAmount:  s.totalAmount,
		Cancelled:    s.cancelled,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
		Items:        items,
	}
}

// FromSnapshot rehydrates an aggregate from stored state. The snapshot is
// trusted: it was produced by a prior aggregate mutation, so no validation or
// recalculation runs here.
func FromSnapshot(snap Snapshot) *Sale {
	items := make([]Item, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = Item{
			id:              item.ID,
			productID:       item.ProductID,
			productName:     item.ProductName,
			quantity:        item.Quantity,
			unitPrice:       item.UnitPrice,
			discountPercent: item.DiscountPercent,
			totalAmount:     item.TotalAmount,
			cancelled:       item.Cancelled,
		}
	}
	return &Sale{
		id:           snap.ID,
		saleNumber:   snap.SaleNumber,
		saleDate:     snap.SaleDate,
		customerID:   snap.CustomerID,
		customerName: snap.CustomerName,
		branchID:     snap.BranchID,
		branchName:   snap.BranchName,
		totalAmount:  snap.TotalAmount,
		cancelled:    snap.Cancelled,
		createdAt:    snap.CreatedAt,
		updatedAt:    snap.UpdatedAt,
		items:        items,
	}
}
