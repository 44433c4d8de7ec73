// Package api holds the JSON contract of the storefront REST API, shared by
// the server handlers and the Go client.
package api

import "time"

const TimeFormat = time.RFC3339

type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	AddedAt   string `json:"addedAt,omitempty"`
}

// Cart is the full cart returned by every cart endpoint. Amounts are minor
// currency units.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	Total     int64      `json:"total"`
	Version   int64      `json:"version"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

type Summary struct {
	ItemCount  int   `json:"itemCount"`
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	Tax        int64 `json:"tax"`
	GrandTotal int64 `json:"grandTotal"`
}

type CartSummaryResponse struct {
	Cart    Cart    `json:"cart"`
	Summary Summary `json:"summary"`
}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidQuantity = "invalid_quantity"
	CodeNotFound        = "not_found"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeInvalidProduct  = "invalid_product"
	CodeConflict        = "conflict"
	CodeTimeout         = "timeout"
	CodeInternal        = "internal_error"
)
