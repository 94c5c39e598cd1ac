package sale

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxCodeLength = 64
	maxNameLength = 256
)

// Sale is the aggregate root for a sales order: a header plus an ordered
// collection of owned line items. All fields are private; state changes only
// through New, Update, CancelItem and Cancel, each of which re-establishes
// the total invariant before returning.
type Sale struct {
	id           uuid.UUID
	saleNumber   string
	saleDate     time.Time
	customerID   string
	customerName string
	branchID     string
	branchName   string
	totalAmount  decimal.Decimal
	cancelled    bool
	createdAt    time.Time
	updatedAt    time.Time
	items        []Item
}

// Item is a line owned exclusively by its Sale. Items are created only via
// the item-replacement path and always receive a fresh identity; there is no
// in-place quantity or price change.
type Item struct {
	id              uuid.UUID
	productID       string
	productName     string
	quantity        int
	unitPrice       decimal.Decimal
	discountPercent decimal.Decimal
	totalAmount     decimal.Decimal
	cancelled       bool
}

// ItemSpec describes a requested line for Create or Update.
type ItemSpec struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// NewSaleInput carries the header fields for New. A zero SaleDate defaults
// to the current UTC time.
type NewSaleInput struct {
	SaleNumber   string
	SaleDate     time.Time
	CustomerID   string
	CustomerName string
	BranchID     string
	BranchName   string
	Items        []ItemSpec
}

// UpdateInput carries replacement values for Update. Empty or whitespace-only
// scalars (and a zero SaleDate) keep the current value; Items always replaces
// the whole collection.
type UpdateInput struct {
	SaleNumber   string
	SaleDate     time.Time
	CustomerID   string
	CustomerName string
	BranchID     string
	BranchName   string
	Items        []ItemSpec
}

// New validates the header fields, normalizes the sale date and builds the
// aggregate with a fresh identity. Item validation is all-or-nothing: any bad
// spec means no sale is created.
func New(in NewSaleInput) (*Sale, error) {
	saleNumber, err := requireField("sale_number", in.SaleNumber, maxCodeLength)
	if err != nil {
		return nil, err
	}
	customerID, err := requireField("customer_id", in.CustomerID, maxCodeLength)
	if err != nil {
		return nil, err
	}
	customerName, err := requireField("customer_name", in.CustomerName, maxNameLength)
	if err != nil {
		return nil, err
	}
	branchID, err := requireField("branch_id", in.BranchID, maxCodeLength)
	if err != nil {
		return nil, err
	}
	branchName, err := requireField("branch_name", in.BranchName, maxNameLength)
	if err != nil {
		return nil, err
	}

	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	now := time.Now().UTC()
	s := &Sale{
		id:           uuid.New(),
		saleNumber:   saleNumber,
		saleDate:     saleDate,
		customerID:   customerID,
		customerName: customerName,
		branchID:     branchID,
		branchName:   branchName,
		createdAt:    now,
		updatedAt:    now,
	}

	if err := s.replaceItems(in.Items); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces header fields where a value was supplied and swaps the
// entire item collection. Nothing is applied until every field and every item
// spec has validated, so a failed update leaves the aggregate untouched.
func (s *Sale) Update(in UpdateInput) error {
	saleNumber := s.saleNumber
	if strings.TrimSpace(in.SaleNumber) != "" {
		v, err := requireField("sale_number", in.SaleNumber, maxCodeLength)
		if err != nil {
			return err
		}
		saleNumber = v
	}
	customerID := s.customerID
	if strings.TrimSpace(in.CustomerID) != "" {
		v, err := requireField("customer_id", in.CustomerID, maxCodeLength)
		if err != nil {
			return err
		}
		customerID = v
	}
	customerName := s.customerName
	if strings.TrimSpace(in.CustomerName) != "" {
		v, err := requireField("customer_name", in.CustomerName, maxNameLength)
		if err != nil {
			return err
		}
		customerName = v
	}
	branchID := s.branchID
	if strings.TrimSpace(in.BranchID) != "" {
		v, err := requireField("branch_id", in.BranchID, maxCodeLength)
		if err != nil {
			return err
		}
		branchID = v
	}
	branchName := s.branchName
	if strings.TrimSpace(in.BranchName) != "" {
		v, err := requireField("branch_name", in.BranchName, maxNameLength)
		if err != nil {
			return err
		}
		branchName = v
	}
	saleDate := s.saleDate
	if !in.SaleDate.IsZero() {
		saleDate = in.SaleDate
	}

	items, err := buildItems(in.Items)
	if err != nil {
		return err
	}

	s.saleNumber = saleNumber
	s.customerID = customerID
	s.customerName = customerName
	s.branchID = branchID
	s.branchName = branchName
	s.saleDate = saleDate
	s.items = items
	s.recalculate()
	return nil
}

// CancelItem marks the identified item as cancelled and recomputes totals.
// Cancelling an already-cancelled item is a no-op, not an error.
func (s *Sale) CancelItem(itemID uuid.UUID) error {
	for i := range s.items {
		if s.items[i].id != itemID {
			continue
		}
		if s.items[i].cancelled {
			return nil
		}
		s.items[i].cancelled = true
		s.recalculate()
		return nil
	}
	return &NotFoundError{Message: "Item not found"}
}

// Cancel marks the sale and every item as cancelled. The transition is
// one-way and idempotent.
func (s *Sale) Cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	for i := range s.items {
		s.items[i].cancelled = true
	}
	s.recalculate()
}

// replaceItems validates every spec, constructs the new collection with
// fresh item identities and swaps it in wholesale. Input order is preserved.
func (s *Sale) replaceItems(specs []ItemSpec) error {
	items, err := buildItems(specs)
	if err != nil {
		return err
	}
	s.items = items
	s.recalculate()
	return nil
}

func buildItems(specs []ItemSpec) ([]Item, error) {
	items := make([]Item, 0, len(specs))
	for _, spec := range specs {
		item, err := newItem(spec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func newItem(spec ItemSpec) (Item, error) {
	productID, err := requireField("product_id", spec.ProductID, maxCodeLength)
	if err != nil {
		return Item{}, err
	}
	productName, err := requireField("product_name", spec.ProductName, maxNameLength)
	if err != nil {
		return Item{}, err
	}
	if spec.Quantity < 1 {
		return Item{}, &ValidationError{
			Field:      "quantity",
			Constraint: ConstraintQuantityRange,
			Message:    "quantity must be between 1 and 20",
		}
	}
	discount, err := DiscountForQuantity(spec.Quantity)
	if err != nil {
		return Item{}, err
	}
	if !spec.UnitPrice.IsPositive() {
		return Item{}, &ValidationError{
			Field:      "unit_price",
			Constraint: ConstraintPriceRange,
			Message:    "unit price must be greater than zero",
		}
	}

	return Item{
		id:              uuid.New(),
		productID:       productID,
		productName:     productName,
		quantity:        spec.Quantity,
		unitPrice:       Round2(spec.UnitPrice),
		discountPercent: discount,
	}, nil
}

// recalculate restores the monetary invariants after a mutation: each live
// item total is unit price x quantity x (1 - discount) rounded to two
// decimals, cancelled items carry zero, and the sale total is the rounded sum
// of the live items. A cancelled sale forces every item to cancelled first.
func (s *Sale) recalculate() {
	if s.cancelled {
		for i := range s.items {
			s.items[i].cancelled = true
		}
	}

	sum := decimal.Zero
	for i := range s.items {
		if s.items[i].cancelled {
			s.items[i].totalAmount = decimal.Zero
			continue
		}
		gross := s.items[i].unitPrice.Mul(decimal.NewFromInt(int64(s.items[i].quantity)))
		s.items[i].totalAmount = Round2(gross.Mul(decimal.NewFromInt(1).Sub(s.items[i].discountPercent)))
		sum = sum.Add(s.items[i].totalAmount)
	}
	s.totalAmount = Round2(sum)
	s.updatedAt = time.Now().UTC()
}

func requireField(field string, value string, max int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", requiredError(field)
	}
	if len(trimmed) > max {
		return "", lengthError(field, max)
	}
	return trimmed, nil
}

func (s *Sale) ID() uuid.UUID                 { return s.id }
func (s *Sale) SaleNumber() string            { return s.saleNumber }
func (s *Sale) SaleDate() time.Time           { return s.saleDate }
func (s *Sale) CustomerID() string            { return s.customerID }
func (s *Sale) CustomerName() string          { return s.customerName }
func (s *Sale) BranchID() string              { return s.branchID }
func (s *Sale) BranchName() string            { return s.branchName }
func (s *Sale) TotalAmount() decimal.Decimal  { return s.totalAmount }
func (s *Sale) Cancelled() bool               { return s.cancelled }
func (s *Sale) CreatedAt() time.Time          { return s.createdAt }
func (s *Sale) UpdatedAt() time.Time          { return s.updatedAt }

// Items returns a copy of the item collection in order. Mutating the copy
// has no effect on the aggregate.
func (s *Sale) Items() []Item {
	items := make([]Item, len(s.items))
	copy(items, s.items)
	return items
}

func (i Item) ID() uuid.UUID                     { return i.id }
func (i Item) ProductID() string                 { return i.productID }
func (i Item) ProductName() string               { return i.productName }
func (i Item) Quantity() int                     { return i.quantity }
func (i Item) UnitPrice() decimal.Decimal        { return i.unitPrice }
func (i Item) DiscountPercent() decimal.Decimal  { return i.discountPercent }
func (i Item) TotalAmount() decimal.Decimal      { return i.totalAmount }
func (i Item) Cancelled() bool                   { return i.cancelled }
