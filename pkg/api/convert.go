package api

import (
	"time"

	"github.com/SN7k/Flexova/internal/domain"
)

// FromDomain converts a cart aggregate to its wire form.
func FromDomain(c *domain.Cart) Cart {
	out := Cart{
		ID:      c.ID,
		UserID:  c.UserID,
		Items:   make([]CartItem, len(c.Lines)),
		Total:   int64(c.Total),
		Version: c.Version,
	}
	if !c.CreatedAt.IsZero() {
		out.CreatedAt = c.CreatedAt.Format(TimeFormat)
	}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = c.UpdatedAt.Format(TimeFormat)
	}

	for i, l := range c.Lines {
		item := CartItem{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     int64(l.UnitPrice),
			Image:     l.ImageRef,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
		}
		if !l.AddedAt.IsZero() {
			item.AddedAt = l.AddedAt.Format(TimeFormat)
		}
		out.Items[i] = item
	}
	return out
}

// ToDomain converts a wire cart back to an aggregate. The total is
// recomputed from the items rather than trusted.
func (c Cart) ToDomain() *domain.Cart {
	out := &domain.Cart{
		ID:      c.ID,
		UserID:  c.UserID,
		Lines:   make([]domain.CartLine, len(c.Items)),
		Version: c.Version,
	}
	out.CreatedAt, _ = time.Parse(TimeFormat, c.CreatedAt)
	out.UpdatedAt, _ = time.Parse(TimeFormat, c.UpdatedAt)

	for i, it := range c.Items {
		line := domain.CartLine{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: domain.Money(it.Price),
			ImageRef:  it.Image,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
		}
		line.AddedAt, _ = time.Parse(TimeFormat, it.AddedAt)
		out.Lines[i] = line
	}
	out.Recompute()
	return out
}

func SummaryFromDomain(s domain.Summary) Summary {
	return Summary{
		ItemCount:  s.ItemCount,
		Subtotal:   int64(s.Subtotal),
		Shipping:   int64(s.Shipping),
		Tax:        int64(s.Tax),
		GrandTotal: int64(s.GrandTotal),
	}
}
