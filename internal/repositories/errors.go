package repositories

import "errors"

var (
	// ErrRecordNotFound is wrapped by every lookup that finds nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrConflict signals a concurrent modification detected by the store.
	ErrConflict = errors.New("concurrent modification detected")
	// ErrNegativeStock is returned when a write would leave a variant with negative stock.
	ErrNegativeStock = errors.New("stock quantity cannot be negative")
)
