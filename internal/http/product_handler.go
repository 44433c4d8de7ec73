package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/internal/repository"
	"github.com/SN7k/Flexova/pkg/api"
	"github.com/SN7k/Flexova/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products repository.ProductRepository
	timeout  time.Duration
}

func NewProductHandler(products repository.ProductRepository, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

const maxHighlightLimit = 50

func (h *ProductHandler) Routes(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Get("/featured", h.FeaturedProducts)
	r.Get("/new", h.NewProducts)
	r.Get("/{id}", h.GetProduct)
}

// AdminRoutes are mounted behind AuthMiddleware and RequireAdmin.
func (h *ProductHandler) AdminRoutes(r chi.Router) {
	r.Post("/", h.CreateProduct)
}

// ListProducts serves GET /api/products?page=&category=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = p
	}

	result, err := h.products.ListProducts(ctx, repository.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Page:     page,
		PageSize: repository.DefaultPageSize,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// FeaturedProducts serves GET /api/products/featured?limit=
func (h *ProductHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	h.highlight(w, r, h.products.FeaturedProducts)
}

// NewProducts serves GET /api/products/new?limit=
func (h *ProductHandler) NewProducts(w http.ResponseWriter, r *http.Request) {
	h.highlight(w, r, h.products.NewProducts)
}

func (h *ProductHandler) highlight(
	w http.ResponseWriter,
	r *http.Request,
	list func(context.Context, int) ([]domain.Product, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := repository.DefaultHighlightLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHighlightLimit)
	}

	products, err := list(ctx, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// CreateProduct serves POST /api/products. The id and creation time are
// assigned by the catalog.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var product domain.Product
	if err := decodeJSON(r, &product); err != nil {
		respondError(w, http.StatusBadRequest, api.CodeInvalidRequest, "invalid request body")
		return
	}
	product.ID = ""
	product.CreatedAt = time.Time{}

	if err := product.Validate(); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := h.products.InsertProduct(ctx, &product); err != nil {
		logger.FromContext(ctx, zap.L()).Error("insert product failed", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}
