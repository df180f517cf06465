package domain

import (
	"time"

	"github.com/google/uuid"
)

// LootCoinRate is how much currency must be spent to earn one LootCoin.
const LootCoinRate int64 = 2000

type OrderItem struct {
	ID           int64     `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int32     `json:"quantity"`
	PriceAtOrder int64     `json:"price_at_order"`
}

func (i OrderItem) Subtotal() int64 {
	return i.PriceAtOrder * int64(i.Quantity)
}

type Order struct {
	ID              uuid.UUID
	UserID          int64
	Status          OrderStatus
	Total           int64
	LootCoinsEarned int64
	ShippingAddress string
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LootCoinsFor returns floor(total / rate). A non-positive rate falls back to LootCoinRate.
func LootCoinsFor(total, rate int64) int64 {
	if rate <= 0 {
		rate = LootCoinRate
	}
	if total <= 0 {
		return 0
	}
	return total / rate
}

// NewOrderFromCart snapshots cart lines into a PENDING order. Prices are
// frozen here and never recomputed.
func NewOrderFromCart(userID int64, lines []CartLine, rate int64, now time.Time) *Order {
	order := &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    OrderStatusPending,
		Items:     make([]OrderItem, 0, len(lines)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, line := range lines {
		order.Items = append(order.Items, OrderItem{
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			PriceAtOrder: line.UnitPrice,
		})
		order.Total += line.Subtotal()
	}
	order.LootCoinsEarned = LootCoinsFor(order.Total, rate)
	return order
}
