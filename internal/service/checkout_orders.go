package service

import (
	"context"
	"fmt"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/google/uuid"
)

// AdvanceOrderStatus is the admin fulfilment path (CONFIRMED -> SHIPPED -> DELIVERED).
// Leaving PENDING is reserved for ConfirmPayment.
func (s *CheckoutServiceImpl) AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusPending || !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, next)
	}

	ok, err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrIllegalTransition, orderID)
	}

	s.log.InfoContext(ctx, "order status advanced", "order_id", orderID, "from", order.Status, "to", next)
	return s.repo.GetOrder(ctx, orderID)
}

// GetOrder hides other users' orders behind ErrOrderNotFound.
func (s *CheckoutServiceImpl) GetOrder(ctx context.Context, userID int64, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutServiceImpl) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}
