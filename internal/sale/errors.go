package sale

import "fmt"

// Constraint names carried by ValidationError so the HTTP layer can build
// field-level error payloads without parsing messages.
const (
	ConstraintRequired         = "required"
	ConstraintLengthExceeded   = "length-exceeded"
	ConstraintQuantityRange    = "quantity-out-of-range"
	ConstraintQuantityLimit    = "quantity-limit-exceeded"
	ConstraintPriceRange       = "price-out-of-range"
	ConstraintInvalidReference = "invalid-reference"
)

type ValidationError struct {
	Field      string
	Constraint string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Constraint)
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func requiredError(field string) error {
	return &ValidationError{
		Field:      field,
		Constraint: ConstraintRequired,
		Message:    fmt.Sprintf("%s is required", field),
	}
}

func lengthError(field string, max int) error {
	return &ValidationError{
		Field:      field,
		Constraint: ConstraintLengthExceeded,
		Message:    fmt.Sprintf("%s must be at most %d characters", field, max),
	}
}
