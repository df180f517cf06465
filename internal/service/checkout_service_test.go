package service

import (
	"context"
	"testing"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/metrics"
	"github.com/fjod/loot_kingdom/internal/payment"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_HappyPath(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 2000, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 1))

	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{ShippingAddress: " 1 Castle Road "})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Order.Total)
	assert.Equal(t, int64(1), res.Order.LootCoinsEarned)
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)
	assert.Equal(t, "1 Castle Road", res.Order.ShippingAddress)
	assert.Equal(t, "https://pay.example.com/redirect", res.PaymentURL)
	assert.Equal(t, int32(5), e.stock(t, product.ID), "stock is only committed at confirmation")
	assert.Equal(t, 1, e.cartLen(t, user.ID))

	require.Len(t, e.gateway.requests, 1)
	assert.Equal(t, res.Order.ID, e.gateway.requests[0].OrderID)
	assert.Equal(t, user.Email, e.gateway.requests[0].PayerEmail)
	assert.Equal(t, int64(2000), e.gateway.requests[0].Total)

	order, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, int32(4), e.stock(t, product.ID))
	assert.Equal(t, int64(1), e.balance(t, user.ID))
	assert.Zero(t, e.cartLen(t, user.ID))
	assert.Equal(t, []string{domain.EventOrderConfirmed}, e.outboxTypes(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.OrdersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeConfirmed)))
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	e := setupEnv(t)
	user := e.newUser(t, 0)

	_, err := e.checkout.CreateOrder(context.Background(), user.ID, CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 1000, 0)
	e.putInCart(t, user.ID, product.ID, 1)

	_, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.Equal(t, int32(0), stockErr.Available)
	assert.Equal(t, int32(1), stockErr.Requested)

	orders, err := e.checkout.ListOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders, "no partial order is created")
	assert.Equal(t, 1, e.cartLen(t, user.ID), "cart is left untouched")
}

func TestCreateOrder_UnknownUser(t *testing.T) {
	e := setupEnv(t)

	_, err := e.checkout.CreateOrder(context.Background(), 999, CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateOrder_GatewayFailureDegrades(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.gateway.url = ""
	e.gateway.err = payment.ErrGatewayUnavailable
	user := e.newUser(t, 0)
	product := e.newProduct(t, 500, 3)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 2))

	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.PaymentURL)
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.GatewayFailures))
}

func TestConfirmPayment_Declined(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 30)
	product := e.newProduct(t, 4000, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 1))
	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)

	order, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, int32(5), e.stock(t, product.ID))
	assert.Equal(t, int64(30), e.balance(t, user.ID))
	assert.Equal(t, 1, e.cartLen(t, user.ID), "cart is kept so the user can retry")
	assert.Equal(t, []string{domain.EventOrderCancelled}, e.outboxTypes(t))

	again, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, again.Status, "CANCELLED is terminal")
	assert.Equal(t, int32(5), e.stock(t, product.ID))
}

func TestConfirmPayment_PendingKeepsOrderOpen(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 4000, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 1))
	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)

	order, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "in_process")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Empty(t, e.outboxTypes(t))

	order, err = e.checkout.ConfirmPayment(ctx, res.Order.ID, "APPROVED")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 3000, 10)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 2))
	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		order, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	}

	assert.Equal(t, int32(8), e.stock(t, product.ID))
	assert.Equal(t, int64(3), e.balance(t, user.ID))
	assert.Len(t, e.outboxTypes(t), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeNoop)))
}

func TestConfirmPayment_UnknownOrder(t *testing.T) {
	e := setupEnv(t)

	_, err := e.checkout.ConfirmPayment(context.Background(), uuid.New(), "approved")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmPayment_OversellCancelsSecondOrder(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.newUser(t, 0)
	bob := e.newUser(t, 0)
	product := e.newProduct(t, 2000, 1)

	require.NoError(t, e.cart.AddItem(ctx, alice.ID, product.ID, 1))
	require.NoError(t, e.cart.AddItem(ctx, bob.ID, product.ID, 1))
	first, err := e.checkout.CreateOrder(ctx, alice.ID, CreateOrderRequest{})
	require.NoError(t, err)
	second, err := e.checkout.CreateOrder(ctx, bob.ID, CreateOrderRequest{})
	require.NoError(t, err)

	_, err = e.checkout.ConfirmPayment(ctx, first.Order.ID, "approved")
	require.NoError(t, err)

	_, err = e.checkout.ConfirmPayment(ctx, second.Order.ID, "approved")
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Zero(t, e.stock(t, product.ID), "stock never goes negative")
	assert.Zero(t, e.balance(t, bob.ID), "no coins for the oversold order")
	assert.Equal(t, 1, e.cartLen(t, bob.ID), "rolled back confirmation keeps the cart")

	order, err := e.checkout.GetOrder(ctx, bob.ID, second.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, []string{domain.EventOrderConfirmed, domain.EventOrderCancelled}, e.outboxTypes(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeOutOfStock)))
}

func TestConfirmPayment_InvalidatesCartCache(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 2000, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 1))

	cart, err := e.cart.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)
	_, err = e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
	require.NoError(t, err)

	cart, err = e.cart.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestOrder_PriceSnapshotSurvivesPriceChange(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 2500, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 2))
	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)

	newPrice := int64(99999)
	_, err = e.catalog.UpdateProduct(ctx, product.ID, UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)

	order, err := e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), order.Total)
	assert.Equal(t, int64(2500), order.Items[0].PriceAtOrder)
	assert.Equal(t, int64(2), order.LootCoinsEarned)
	assert.Equal(t, int64(2), e.balance(t, user.ID))
}

func TestGetOrder_ScopedToCaller(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	owner := e.newUser(t, 0)
	other := e.newUser(t, 0)
	product := e.newProduct(t, 100, 5)
	require.NoError(t, e.cart.AddItem(ctx, owner.ID, product.ID, 1))
	res, err := e.checkout.CreateOrder(ctx, owner.ID, CreateOrderRequest{})
	require.NoError(t, err)

	_, err = e.checkout.GetOrder(ctx, other.ID, res.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := e.checkout.GetOrder(ctx, owner.ID, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, order.ID)

	list, err := e.checkout.ListOrders(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdvanceOrderStatus(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	user := e.newUser(t, 0)
	product := e.newProduct(t, 100, 5)
	require.NoError(t, e.cart.AddItem(ctx, user.ID, product.ID, 1))
	res, err := e.checkout.CreateOrder(ctx, user.ID, CreateOrderRequest{})
	require.NoError(t, err)

	_, err = e.checkout.AdvanceOrderStatus(ctx, res.Order.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrIllegalTransition, "leaving PENDING is reserved for payment confirmation")

	_, err = e.checkout.ConfirmPayment(ctx, res.Order.ID, "approved")
	require.NoError(t, err)

	_, err = e.checkout.AdvanceOrderStatus(ctx, res.Order.ID, domain.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	order, err := e.checkout.AdvanceOrderStatus(ctx, res.Order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	order, err = e.checkout.AdvanceOrderStatus(ctx, res.Order.ID, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)

	_, err = e.checkout.AdvanceOrderStatus(ctx, res.Order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
