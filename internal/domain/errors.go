package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrCartNotFound    = fmt.Errorf("cart %w", ErrNotFound)
	ErrLineNotFound    = fmt.Errorf("item %w in cart", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)

	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("invalid product")

	// ErrVersionConflict is returned when a cart save is based on a stale version.
	ErrVersionConflict = errors.New("cart was modified concurrently")

	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrSyncFailure        = errors.New("server sync failed")
)
