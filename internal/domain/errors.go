package domain

import (
	"errors"
	"fmt"
)

// Rejections come in two kinds. Validation errors mean the caller should adjust
// its input and retry; conflict errors mean the caller's view of the shop state
// is stale and must be refreshed first.
var (
	ErrValidation = errors.New("validation rejected")
	ErrConflict   = errors.New("state conflict")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrValidation)
	ErrInsufficientCash  = fmt.Errorf("%w: insufficient cash", ErrValidation)
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrNotInCart         = fmt.Errorf("%w: product not in cart", ErrValidation)
	ErrInvalidPayment    = fmt.Errorf("%w: unsupported payment method", ErrValidation)
	ErrInvalidRecord     = fmt.Errorf("%w: invalid record", ErrValidation)
	ErrInvalidRange      = fmt.Errorf("%w: invalid date range", ErrValidation)

	ErrDayClosed         = fmt.Errorf("%w: day closed", ErrConflict)
	ErrDayAlreadyClosed  = fmt.Errorf("%w: day already closed", ErrConflict)
	ErrDayNotClosed      = fmt.Errorf("%w: day is not closed", ErrConflict)
	ErrInventoryConflict = fmt.Errorf("%w: inventory conflict", ErrConflict)
	ErrDuplicateProduct  = fmt.Errorf("%w: product id already exists", ErrConflict)
)

// StockShortage names the product that failed a stock check.
type StockShortage struct {
	Err       error
	ProductID string
	Name      string
	Requested string
	Available string
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("%v: %s (%s) requested %s, available %s", e.Err, e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *StockShortage) Unwrap() error {
	return e.Err
}
