package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/service"
)

type CatalogServicer interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, req service.UpdateProductRequest) (*domain.Product, error)
}

type ProductHandler struct {
	svc     CatalogServicer
	log     *slog.Logger
	timeout time.Duration
}

func NewProductHandler(svc CatalogServicer, log *slog.Logger, timeout time.Duration) *ProductHandler {
	return &ProductHandler{svc: svc, log: log, timeout: timeout}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.svc.ListProducts(ctx)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	product, err := h.svc.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// UpdateProduct handles PATCH /admin/products/{product_id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	product, err := h.svc.UpdateProduct(ctx, productID, service.UpdateProductRequest{
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}
