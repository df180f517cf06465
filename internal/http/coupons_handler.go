package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/service"
)

type LoyaltyServicer interface {
	RewardOptions() []domain.RewardTier
	Redeem(ctx context.Context, userID int64, rewardID string) (*service.RedeemResult, error)
	Validate(ctx context.Context, code string, userID *int64) (*service.ValidationResult, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	ListCoupons(ctx context.Context, userID int64) ([]*domain.Coupon, error)
}

type CouponsHandler struct {
	svc     LoyaltyServicer
	log     *slog.Logger
	timeout time.Duration
}

func NewCouponsHandler(svc LoyaltyServicer, log *slog.Logger, timeout time.Duration) *CouponsHandler {
	return &CouponsHandler{svc: svc, log: log, timeout: timeout}
}

// Options handles GET /coupons/options
func (h *CouponsHandler) Options(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.RewardOptions())
}

// Redeem handles POST /coupons/redeem
func (h *CouponsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RedeemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	res, err := h.svc.Redeem(ctx, getUserIDFromContext(ctx), strings.TrimSpace(req.RewardID))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, RedeemResponse{
		Coupon:  toCouponResponse(res.Coupon),
		Balance: res.Balance,
	})
}

// Validate handles GET /coupons/validate?code=
func (h *CouponsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	code := r.URL.Query().Get("code")
	if strings.TrimSpace(code) == "" {
		respondError(w, http.StatusBadRequest, "invalid_coupon", "code is required")
		return
	}

	userID := getUserIDFromContext(ctx)
	res, err := h.svc.Validate(ctx, code, &userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// List handles GET /coupons
func (h *CouponsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	coupons, err := h.svc.ListCoupons(ctx, getUserIDFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := make([]CouponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, toCouponResponse(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Account handles GET /account
func (h *CouponsHandler) Account(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	balance, err := h.svc.Balance(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, AccountResponse{UserID: userID, LootCoins: balance})
}
