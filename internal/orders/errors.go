package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrStockConflict means a conditional decrement matched no row inside the create transaction.
	ErrStockConflict = errors.New("stock update conflict")
	// ErrDuplicateNumber is returned by a Store when the generated order number is already taken.
	ErrDuplicateNumber = errors.New("order number already exists")
)

type InsufficientStockError struct {
	Product   string
	Color     string
	Size      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s in %s color, size %s. Available: %d",
		e.Product, e.Color, e.Size, e.Available)
}

type PriceMismatchError struct{ Product string }

func (e *PriceMismatchError) Error() string {
	return "Price mismatch for product " + e.Product
}

type InvalidStatusError struct{ Status string }

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Status)
}

type IllegalTransitionError struct{ From, To Status }

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// StockConflictError names the variant whose decrement failed.
type StockConflictError struct {
	ProductID string
	Color     string
	Size      string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock changed while placing order: product %s color %s size %s", e.ProductID, e.Color, e.Size)
}

func (e *StockConflictError) Unwrap() error { return ErrStockConflict }
