package domain

import (
	"time"

	"github.com/google/uuid"
)

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	UserID    string     `bson:"user_id" json:"userId"`
	Lines     []CartLine `bson:"lines" json:"lines"`
	Total     Money      `bson:"total" json:"total"`
	Version   int64      `bson:"version" json:"version"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

type CartLine struct {
	ID        string    `bson:"id" json:"id"`
	ProductID string    `bson:"product_id" json:"productId"`
	Name      string    `bson:"name" json:"name"`
	UnitPrice Money     `bson:"unit_price" json:"unitPrice"`
	ImageRef  string    `bson:"image_ref" json:"imageRef"`
	Size      string    `bson:"size" json:"size"`
	Color     string    `bson:"color" json:"color"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Key returns the identity of the line.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// NewCart returns an empty, never persisted cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Lines:  []CartLine{},
	}
}

// AddLine merges quantity into the line matching (product, size, color) or
// appends a new line holding the snapshot.
func (c *Cart) AddLine(snap ProductSnapshot, quantity int, size, color string) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	key := LineKey{ProductID: snap.ProductID, Size: size, Color: color}
	if i, ok := ResolveLine(c.Lines, key); ok {
		c.Lines[i].Quantity += quantity
	} else {
		c.Lines = append(c.Lines, CartLine{
			ID:        uuid.NewString(),
			ProductID: snap.ProductID,
			Name:      snap.Name,
			UnitPrice: snap.UnitPrice,
			ImageRef:  snap.ImageRef,
			Size:      size,
			Color:     color,
			Quantity:  quantity,
			AddedAt:   time.Now().UTC(),
		})
	}

	c.recompute()
	return nil
}

func (c *Cart) UpdateLineQuantity(key LineKey, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	i, ok := ResolveLine(c.Lines, key)
	if !ok {
		return ErrLineNotFound
	}

	c.Lines[i].Quantity = quantity
	c.recompute()
	return nil
}

// AdjustLineQuantity adds delta to the line quantity. A result below 1
// removes the line.
func (c *Cart) AdjustLineQuantity(key LineKey, delta int) error {
	i, ok := ResolveLine(c.Lines, key)
	if !ok {
		return ErrLineNotFound
	}

	if c.Lines[i].Quantity+delta < 1 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	} else {
		c.Lines[i].Quantity += delta
	}
	c.recompute()
	return nil
}

func (c *Cart) RemoveLine(key LineKey) error {
	i, ok := ResolveLine(c.Lines, key)
	if !ok {
		return ErrLineNotFound
	}

	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.recompute()
	return nil
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.Total = 0
}

// LineByID returns the identity of the line with the given id.
func (c *Cart) LineByID(id string) (LineKey, error) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l.Key(), nil
		}
	}
	return LineKey{}, ErrLineNotFound
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = make([]CartLine, len(c.Lines))
	copy(cp.Lines, c.Lines)
	return &cp
}

// recompute sets Total to the full sum over lines. It is never patched
// incrementally.
func (c *Cart) recompute() {
	var total Money
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	c.Total = total
}

// Recompute restores the total invariant on a cart decoded from storage.
func (c *Cart) Recompute() {
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
	c.recompute()
}
