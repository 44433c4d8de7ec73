package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_EmptyCartHasNoShipping(t *testing.T) {
	s := NewCart("u1").Summary(DefaultPricingPolicy)
	assert.Equal(t, Summary{}, s)
}

func TestSummary_AppliesShippingAndTax(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.AddLine(ProductSnapshot{ProductID: "p1", UnitPrice: 249900}, 2, "M", "red"))

	s := c.Summary(DefaultPricingPolicy)
	assert.Equal(t, 2, s.ItemCount)
	assert.Equal(t, Money(499800), s.Subtotal)
	assert.Equal(t, Money(9900), s.Shipping)
	assert.Equal(t, Money(89964), s.Tax)
	assert.Equal(t, Money(499800+9900+89964), s.GrandTotal)
}

func TestProduct_SnapshotAndDiscount(t *testing.T) {
	p := Product{ID: "p1", Name: "Dress", Price: 2000, Images: []string{"a.jpg", "b.jpg"}, Discount: 25}
	snap := p.Snapshot()
	assert.Equal(t, ProductSnapshot{ProductID: "p1", Name: "Dress", UnitPrice: 2000, ImageRef: "a.jpg"}, snap)
	assert.Equal(t, Money(1500), p.DiscountedPrice())

	p.Images = nil
	assert.Empty(t, p.Snapshot().ImageRef)
}

func TestProduct_Validate(t *testing.T) {
	valid := Product{Name: "Linen Dress", Description: "Relaxed fit", Price: 2499, Category: CategoryDresses, Sizes: []string{"S", "M"}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Product)
	}{
		{"blank name", func(p *Product) { p.Name = "  " }},
		{"missing description", func(p *Product) { p.Description = "" }},
		{"negative price", func(p *Product) { p.Price = -1 }},
		{"unknown category", func(p *Product) { p.Category = "dresses" }},
		{"negative stock", func(p *Product) { p.CountInStock = -1 }},
		{"discount over 100", func(p *Product) { p.Discount = 101 }},
		{"unknown size", func(p *Product) { p.Sizes = []string{"M", "XXXL"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.Sizes = append([]string(nil), valid.Sizes...)
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidProduct)
		})
	}
}
