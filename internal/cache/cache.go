package cache

import (
	"context"
	"errors"

	"github.com/SN7k/Flexova/internal/domain"
)

// CartCache is a read-through copy of the authoritative cart. Entries are
// dropped on every successful write, never updated in place.
//
// Each entry carries the cart version it was filled from. Invalidate leaves
// the saved version behind, and Set refuses any cart older than what the
// entry already records, so a fill that raced a write cannot resurrect the
// pre-write cart.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Invalidate(ctx context.Context, userID string, version int64) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the entry already holds a newer version.
	ErrStale = errors.New("cache entry is newer")
)
