package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartServicer interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, qty int32) error
	UpdateQuantity(ctx context.Context, userID, productID int64, qty int32) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type CartHandler struct {
	svc     CartServicer
	log     *slog.Logger
	timeout time.Duration
}

func NewCartHandler(svc CartServicer, log *slog.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{svc: svc, log: log, timeout: timeout}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.svc.GetCart(ctx, getUserIDFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product", "product_id is required")
		return
	}

	userID := getUserIDFromContext(ctx)
	if err := h.svc.AddItem(ctx, userID, req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	h.respondCart(ctx, w, r, userID, http.StatusCreated)
}

// UpdateQuantity handles PUT /cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	userID := getUserIDFromContext(ctx)
	if err := h.svc.UpdateQuantity(ctx, userID, productID, req.Quantity); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	h.respondCart(ctx, w, r, userID, http.StatusOK)
}

// RemoveItem handles DELETE /cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveItem(ctx, getUserIDFromContext(ctx), productID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.ClearCart(ctx, getUserIDFromContext(ctx)); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, status int) {
	cart, err := h.svc.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, status, toCartResponse(cart))
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "invalid product ID")
		return 0, false
	}
	return productID, true
}
