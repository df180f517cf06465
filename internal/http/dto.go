package http

import (
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/google/uuid"
)

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int32 `json:"quantity"`
}

type CartResponse struct {
	UserID int64             `json:"user_id"`
	Items  []domain.CartLine `json:"items"`
	Total  int64             `json:"total"`
}

func toCartResponse(c *domain.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartResponse{UserID: c.UserID, Items: items, Total: c.Total()}
}

type CreateOrderRequestDTO struct {
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
}

type OrderResponse struct {
	ID              uuid.UUID          `json:"id"`
	UserID          int64              `json:"user_id"`
	Status          domain.OrderStatus `json:"status"`
	Total           int64              `json:"total"`
	LootCoinsEarned int64              `json:"loot_coins_earned"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Items           []domain.OrderItem `json:"items"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := o.Items
	if items == nil {
		items = []domain.OrderItem{}
	}
	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		Total:           o.Total,
		LootCoinsEarned: o.LootCoinsEarned,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type CreateOrderResponse struct {
	Order      OrderResponse `json:"order"`
	PaymentURL *string       `json:"payment_url"`
}

type UpdateOrderStatusRequestDTO struct {
	Status string `json:"status"`
}

type UpdateProductRequestDTO struct {
	Price *int64 `json:"price"`
	Stock *int32 `json:"stock"`
}

type RedeemRequestDTO struct {
	RewardID string `json:"reward_id"`
}

type CouponResponse struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent int32      `json:"discount_percent"`
	LootCoinsCost   int64      `json:"loot_coins_cost"`
	IsActive        bool       `json:"is_active"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toCouponResponse(c *domain.Coupon) CouponResponse {
	return CouponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		LootCoinsCost:   c.LootCoinsCost,
		IsActive:        c.IsActive,
		UsedAt:          c.UsedAt,
		CreatedAt:       c.CreatedAt,
	}
}

type RedeemResponse struct {
	Coupon  CouponResponse `json:"coupon"`
	Balance int64          `json:"balance"`
}

type AccountResponse struct {
	UserID    int64 `json:"user_id"`
	LootCoins int64 `json:"loot_coins"`
}
