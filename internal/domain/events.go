package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
	EventCouponRedeemed = "coupon.redeemed"
)

const (
	CancelReasonDeclined   = "payment_declined"
	CancelReasonOutOfStock = "out_of_stock"
)

type OrderConfirmedEvent struct {
	OrderID         uuid.UUID   `json:"order_id"`
	UserID          int64       `json:"user_id"`
	Total           int64       `json:"total"`
	LootCoinsEarned int64       `json:"loot_coins_earned"`
	Items           []OrderItem `json:"items"`
	ConfirmedAt     time.Time   `json:"confirmed_at"`
}

type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	UserID        int64     `json:"user_id"`
	Total         int64     `json:"total"`
	Reason        string    `json:"reason"`
	PaymentStatus string    `json:"payment_status"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type CouponRedeemedEvent struct {
	CouponID        uuid.UUID `json:"coupon_id"`
	Code            string    `json:"code"`
	UserID          int64     `json:"user_id"`
	RewardID        string    `json:"reward_id"`
	DiscountPercent int32     `json:"discount_percent"`
	Cost            int64     `json:"cost"`
	RedeemedAt      time.Time `json:"redeemed_at"`
}
