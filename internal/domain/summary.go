package domain

// PricingPolicy holds the checkout charges applied on top of the cart total.
type PricingPolicy struct {
	FlatShipping Money
	// TaxRateBPS is the tax rate in basis points (1800 = 18%).
	TaxRateBPS int64
}

var DefaultPricingPolicy = PricingPolicy{
	FlatShipping: 9900,
	TaxRateBPS:   1800,
}

type Summary struct {
	ItemCount  int   `json:"itemCount"`
	Subtotal   Money `json:"subtotal"`
	Shipping   Money `json:"shipping"`
	Tax        Money `json:"tax"`
	GrandTotal Money `json:"grandTotal"`
}

// Summary prices the cart for checkout. Shipping is charged only when the
// cart has lines.
func (c *Cart) Summary(p PricingPolicy) Summary {
	s := Summary{
		ItemCount: c.ItemCount(),
		Subtotal:  c.Total,
	}
	if len(c.Lines) > 0 {
		s.Shipping = p.FlatShipping
	}
	s.Tax = c.Total.Percent(p.TaxRateBPS)
	s.GrandTotal = s.Subtotal + s.Shipping + s.Tax
	return s
}
