package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLootCoinsFor(t *testing.T) {
	assert.Equal(t, int64(0), LootCoinsFor(1999, LootCoinRate))
	assert.Equal(t, int64(1), LootCoinsFor(2000, LootCoinRate))
	assert.Equal(t, int64(2), LootCoinsFor(5999, LootCoinRate))
	assert.Equal(t, int64(0), LootCoinsFor(-10, LootCoinRate))
	assert.Equal(t, int64(5), LootCoinsFor(500, 100))
	assert.Equal(t, int64(1), LootCoinsFor(2000, 0), "non-positive rate falls back to default")
}

func TestNewOrderFromCart(t *testing.T) {
	now := time.Now()
	lines := []CartLine{
		{ProductID: 1, ProductName: "Figure", Quantity: 2, UnitPrice: 1500, Stock: 10},
		{ProductID: 2, ProductName: "Poster", Quantity: 1, UnitPrice: 1000, Stock: 3},
	}

	order := NewOrderFromCart(7, lines, LootCoinRate, now)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, int64(4000), order.Total)
	assert.Equal(t, int64(2), order.LootCoinsEarned)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.Equal(t, int64(1500), order.Items[0].PriceAtOrder)
	assert.Equal(t, int64(3000), order.Items[0].Subtotal())
	assert.Equal(t, now, order.CreatedAt)
}

func TestCart_Total(t *testing.T) {
	cart := &Cart{Items: []CartLine{{Quantity: 3, UnitPrice: 100}, {Quantity: 1, UnitPrice: 50}}}
	assert.Equal(t, int64(350), cart.Total())
}
