package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/metrics"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"github.com/google/uuid"
)

// ConfirmPayment settles a PENDING order from the payment channel's status
// token. Orders that already left PENDING are returned unchanged, so
// redelivered redirects and webhooks are harmless.
func (s *CheckoutServiceImpl) ConfirmPayment(ctx context.Context, orderID uuid.UUID, statusToken string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending {
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeNoop).Inc()
		s.log.InfoContext(ctx, "duplicate payment confirmation ignored", "order_id", order.ID, "status", order.Status)
		return order, nil
	}

	switch domain.NormalizePaymentStatus(statusToken) {
	case domain.PaymentApproved:
		return s.approve(ctx, order)
	case domain.PaymentPending:
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomePending).Inc()
		return order, nil
	default:
		cancelled, err := s.cancel(ctx, order, statusToken, domain.CancelReasonDeclined)
		if err != nil {
			return nil, err
		}
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return cancelled, nil
	}
}

// approve commits the order in one transaction: status, stock, loot coins,
// cart and the outbox event. A product that can no longer cover its line
// rolls everything back and the order is cancelled as out of stock.
func (s *CheckoutServiceImpl) approve(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	applied := false
	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		ok, err := tx.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			// a concurrent confirmation settled the order first
			return nil
		}

		for _, item := range order.Items {
			if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if !errors.Is(err, r.ErrStockConflict) {
					return err
				}
				stockErr := &InsufficientStockError{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Requested:   item.Quantity,
				}
				if p, pErr := tx.GetProduct(ctx, item.ProductID); pErr == nil {
					stockErr.Available = p.Stock
				}
				return stockErr
			}
		}

		if order.LootCoinsEarned > 0 {
			if err := tx.CreditLootCoins(ctx, order.UserID, order.LootCoinsEarned); err != nil {
				return err
			}
		}

		if err := tx.ClearCart(ctx, order.UserID); err != nil {
			return err
		}

		event := domain.OrderConfirmedEvent{
			OrderID:         order.ID,
			UserID:          order.UserID,
			Total:           order.Total,
			LootCoinsEarned: order.LootCoinsEarned,
			Items:           order.Items,
			ConfirmedAt:     time.Now().UTC(),
		}
		if err := tx.InsertOutboxEvent(ctx, order.ID.String(), domain.EventOrderConfirmed, event); err != nil {
			return err
		}

		applied = true
		return nil
	})

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		s.log.WarnContext(ctx, "order oversold at confirmation, cancelling",
			"order_id", order.ID,
			"product_id", stockErr.ProductID,
			"requested", stockErr.Requested,
			"available", stockErr.Available)
		if _, cancelErr := s.cancel(ctx, order, string(domain.PaymentApproved), domain.CancelReasonOutOfStock); cancelErr != nil {
			return nil, errors.Join(err, cancelErr)
		}
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeOutOfStock).Inc()
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("confirm order %s: %w", order.ID, err)
	}

	if applied {
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeConfirmed).Inc()
		s.metrics.LootCoinsCredited.Add(float64(order.LootCoinsEarned))
		invalidateCart(ctx, s.cache, s.log, order.UserID)
		s.log.InfoContext(ctx, "order confirmed",
			"order_id", order.ID,
			"user_id", order.UserID,
			"loot_coins_credited", order.LootCoinsEarned)
	} else {
		s.metrics.PaymentConfirmations.WithLabelValues(metrics.OutcomeNoop).Inc()
	}

	return s.repo.GetOrder(ctx, order.ID)
}

// cancel moves a PENDING order to CANCELLED and records why. Stock, balance
// and the cart are not touched.
func (s *CheckoutServiceImpl) cancel(ctx context.Context, order *domain.Order, statusToken, reason string) (*domain.Order, error) {
	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		ok, err := tx.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled)
		if err != nil || !ok {
			return err
		}
		event := domain.OrderCancelledEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Total:         order.Total,
			Reason:        reason,
			PaymentStatus: statusToken,
			CancelledAt:   time.Now().UTC(),
		}
		return tx.InsertOutboxEvent(ctx, order.ID.String(), domain.EventOrderCancelled, event)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", order.ID, err)
	}

	s.log.InfoContext(ctx, "order cancelled", "order_id", order.ID, "reason", reason, "payment_status", statusToken)
	return s.repo.GetOrder(ctx, order.ID)
}
