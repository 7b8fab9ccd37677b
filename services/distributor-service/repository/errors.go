package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// StockError reports a conditional decrement that matched no document
// because the stored quantity was too low.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product=%s: available=%d requested=%d", e.ProductID, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) true.
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
