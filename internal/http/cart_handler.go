package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/internal/service"
	"github.com/SN7k/Flexova/pkg/api"
	"github.com/go-chi/chi/v5"
)

// CartService is the server cart as seen by the handlers.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddToCart(ctx context.Context, userID string, in service.AddItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
	Summary(ctx context.Context, userID string) (*domain.Cart, domain.Summary, error)
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

// Routes mounts the cart endpoints. Authentication is applied by the caller.
func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.GetCart)
	r.Get("/summary", h.GetSummary)
	r.Post("/", h.AddItem)
	r.Delete("/", h.ClearCart)
	r.Put("/{itemId}", h.UpdateQuantity)
	r.Delete("/{itemId}", h.RemoveItem)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.service.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.FromDomain(cart))
}

func (h *CartHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	cart, summary, err := h.service.Summary(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.CartSummaryResponse{
		Cart:    api.FromDomain(cart),
		Summary: api.SummaryFromDomain(summary),
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	var req api.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, api.CodeInvalidRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, api.CodeInvalidRequest, "productId is required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, api.CodeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		return
	}

	cart, err := h.service.AddToCart(ctx, userID, service.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, api.FromDomain(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	itemID := chi.URLParam(r, "itemId")

	var req api.UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, api.CodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, api.CodeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		return
	}

	cart, err := h.service.UpdateItem(ctx, userID, itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.FromDomain(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.service.RemoveItem(ctx, userID, chi.URLParam(r, "itemId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.FromDomain(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, api.CodeUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.service.ClearCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, api.FromDomain(cart))
}
