package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Product categories accepted by the catalog.
const (
	CategoryDresses     = "Dresses"
	CategoryTops        = "Tops"
	CategoryBottoms     = "Bottoms"
	CategoryAccessories = "Accessories"
	CategoryCombos      = "Combos"
)

var (
	Categories = []string{CategoryDresses, CategoryTops, CategoryBottoms, CategoryAccessories, CategoryCombos}
	Sizes      = []string{"XS", "S", "M", "L", "XL", "XXL", "One Size"}
)

type Product struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Description  string    `bson:"description" json:"description"`
	Price        Money     `bson:"price" json:"price"`
	Images       []string  `bson:"images" json:"images"`
	Category     string    `bson:"category" json:"category"`
	Sizes        []string  `bson:"sizes" json:"sizes"`
	Colors       []string  `bson:"colors" json:"colors"`
	CountInStock int       `bson:"count_in_stock" json:"countInStock"`
	Discount     int       `bson:"discount" json:"discount"`
	IsNew        bool      `bson:"is_new" json:"isNew"`
	IsFeatured   bool      `bson:"is_featured" json:"isFeatured"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// Validate checks a product before it enters the catalog.
func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case strings.TrimSpace(p.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case !slices.Contains(Categories, p.Category):
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.Category)
	case p.CountInStock < 0:
		return fmt.Errorf("%w: count in stock must not be negative", ErrInvalidProduct)
	case p.Discount < 0 || p.Discount > 100:
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidProduct)
	}
	for _, size := range p.Sizes {
		if !slices.Contains(Sizes, size) {
			return fmt.Errorf("%w: unknown size %q", ErrInvalidProduct, size)
		}
	}
	return nil
}

// DiscountedPrice applies the percentage discount, rounded to the minor unit.
func (p Product) DiscountedPrice() Money {
	if p.Discount <= 0 {
		return p.Price
	}
	return p.Price - p.Price.Percent(int64(p.Discount)*100)
}

// ProductSnapshot is the display data copied into a cart line when it is added.
type ProductSnapshot struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unitPrice"`
	ImageRef  string `json:"imageRef"`
}

func (p Product) Snapshot() ProductSnapshot {
	s := ProductSnapshot{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
	}
	if len(p.Images) > 0 {
		s.ImageRef = p.Images[0]
	}
	return s
}
