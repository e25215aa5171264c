package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrProductInactive   = errors.New("product is not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("operation not permitted for this role")
	ErrDuplicate         = errors.New("record already exists")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrEmptyOrder        = errors.New("order has no lines")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("delivery location %w", ErrNotFound)
	ErrDuplicateEmail   = fmt.Errorf("email already registered: %w", ErrDuplicate)
)

// InsufficientStockError carries the stock level that was available when the
// request was rejected.
type InsufficientStockError struct {
	ProductID int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: only %d available", e.ProductID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Invalid wraps ErrValidation with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailable marks a storage failure, keeping the driver error in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
