package models

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Handlers map these onto HTTP statuses; the engine
// itself never speaks HTTP.
var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrTransactionConflict surfaces only after the coordinator has
	// exhausted its retries on transient store conflicts.
	ErrTransactionConflict = errors.New("transaction conflict, retry the request")

	ErrOrderNotFound       = errors.New("order not found")
	ErrVendorOrderNotFound = errors.New("vendor order not found")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// ProductNotFoundError identifies which product in the cart failed to
// resolve. errors.Is(err, ErrProductNotFound) matches it.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError identifies the product that lost the stock check,
// with the stock observed at that point. errors.Is(err,
// ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
