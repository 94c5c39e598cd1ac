package sale

import "github.com/shopspring/decimal"

// MaxItemQuantity is the hard ceiling on identical items per sale line.
const MaxItemQuantity = 20

var (
	discountNone   = decimal.Zero
	discountSmall  = decimal.New(10, -2) // 0.10
	discountVolume = decimal.New(20, -2) // 0.20
)

// DiscountForQuantity maps a line quantity to its discount percentage:
// 1-3 no discount, 4-9 ten percent, 10-20 twenty percent. Quantities outside
// [1, MaxItemQuantity] are rejected, never clamped. The result is frozen on
// the item at construction time and never recomputed for the same item.
func DiscountForQuantity(quantity int) (decimal.Decimal, error) {
	switch {
	case quantity > MaxItemQuantity:
		return decimal.Zero, &ValidationError{
			Field:      "quantity",
			Constraint: ConstraintQuantityLimit,
			Message:    "cannot sell above 20 identical items",
		}
	case quantity >= 10:
		return discountVolume, nil
	case quantity >= 4:
		return discountSmall, nil
	case quantity >= 1:
		return discountNone, nil
	default:
		return decimal.Zero, &ValidationError{
			Field:      "quantity",
			Constraint: ConstraintQuantityRange,
			Message:    "quantity must be between 1 and 20",
		}
	}
}
