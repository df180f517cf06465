package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrdersServicer is satisfied by service.CheckoutService.
type OrdersServicer interface {
	CreateOrder(ctx context.Context, userID int64, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, statusToken string) (*domain.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, userID int64, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)
}

type OrdersHandler struct {
	svc     OrdersServicer
	log     *slog.Logger
	timeout time.Duration
}

func NewOrdersHandler(svc OrdersServicer, log *slog.Logger, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{svc: svc, log: log, timeout: timeout}
}

// CreateOrder handles POST /orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// An empty body is a valid request without shipping details.
	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	res, err := h.svc.CreateOrder(ctx, getUserIDFromContext(ctx), service.CreateOrderRequest{
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := CreateOrderResponse{Order: toOrderResponse(res.Order)}
	if res.PaymentURL != "" {
		resp.PaymentURL = &res.PaymentURL
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ListOrders handles GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx, getUserIDFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(ctx, getUserIDFromContext(ctx), orderID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// ConfirmPayment handles POST /orders/{order_id}/confirm?status=
// The payment channel calls it without a user identity.
func (h *OrdersHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.ConfirmPayment(ctx, orderID, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// AdvanceStatus handles PATCH /admin/orders/{order_id}/status
func (h *OrdersHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	order, err := h.svc.AdvanceOrderStatus(ctx, orderID, next)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "invalid order ID")
		return uuid.Nil, false
	}
	return orderID, true
}
