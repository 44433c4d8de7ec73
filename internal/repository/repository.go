package repository

import (
	"context"

	"github.com/SN7k/Flexova/internal/domain"
)

// CartRepository persists one cart document per user.
// SaveCart must reject a cart whose Version is older than the stored one
// with domain.ErrVersionConflict.
type CartRepository interface {
	FindCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

// ProductFilter narrows a product listing. Page is 1-based.
type ProductFilter struct {
	Category string
	Page     int
	PageSize int
}

type ProductPage struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Count    int64            `json:"count"`
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	// FeaturedProducts and NewProducts return up to limit flagged products,
	// newest first.
	FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error)
	NewProducts(ctx context.Context, limit int) ([]domain.Product, error)
	// InsertProduct assigns the id and creation time when they are unset.
	InsertProduct(ctx context.Context, p *domain.Product) error
}
