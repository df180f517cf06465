package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/payment"
	r "github.com/fjod/loot_kingdom/internal/repository"
)

// CreateOrder snapshots the cart into a PENDING order. Stock, balance and
// the cart itself are left alone until the payment is confirmed.
func (s *CheckoutServiceImpl) CreateOrder(ctx context.Context, userID int64, req CreateOrderRequest) (*CreateOrderResult, error) {
	var (
		order *domain.Order
		user  *domain.User
	)
	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}

		lines, err := tx.GetCartLines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		for _, line := range lines {
			if line.Stock < line.Quantity {
				return &InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					Requested:   line.Quantity,
					Available:   line.Stock,
				}
			}
		}

		order = domain.NewOrderFromCart(userID, lines, s.lootCoinRate, time.Now().UTC())
		order.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
		order.Notes = strings.TrimSpace(req.Notes)
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrdersCreated.Inc()
	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"user_id", userID,
		"total", order.Total,
		"loot_coins_earned", order.LootCoinsEarned,
		"items", len(order.Items))

	return &CreateOrderResult{
		Order:      order,
		PaymentURL: s.paymentURL(ctx, order, user.Email),
	}, nil
}

// paymentURL never fails the checkout: the order can still be confirmed
// through the confirm endpoint directly.
func (s *CheckoutServiceImpl) paymentURL(ctx context.Context, order *domain.Order, email string) string {
	if s.gateway == nil {
		return ""
	}

	items := make([]payment.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payment.LineItem{
			ProductID: item.ProductID,
			Title:     item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceAtOrder,
		})
	}

	url, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		OrderID:    order.ID,
		Items:      items,
		Total:      order.Total,
		PayerEmail: email,
	})
	if err != nil {
		s.metrics.GatewayFailures.Inc()
		s.log.WarnContext(ctx, "payment gateway unavailable, order stays pending", "order_id", order.ID, "error", err)
		return ""
	}
	return url
}
