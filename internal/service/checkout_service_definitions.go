package service

import (
	"context"
	"log/slog"

	"github.com/fjod/loot_kingdom/internal/cache"
	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/metrics"
	"github.com/fjod/loot_kingdom/internal/payment"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"github.com/google/uuid"
)

type CheckoutService interface {
	CreateOrder(ctx context.Context, userID int64, req CreateOrderRequest) (*CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, statusToken string) (*domain.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, userID int64, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error)
}

type CreateOrderRequest struct {
	ShippingAddress string
	Notes           string
}

type CreateOrderResult struct {
	Order *domain.Order
	// PaymentURL is empty when the gateway is unconfigured or unavailable.
	PaymentURL string
}

type CheckoutServiceImpl struct {
	repo         r.RepoInterface
	gateway      payment.Gateway
	cache        cache.CartCache
	metrics      *metrics.Metrics
	log          *slog.Logger
	lootCoinRate int64
}

func NewCheckoutService(
	repo r.RepoInterface,
	gateway payment.Gateway,
	cartCache cache.CartCache,
	m *metrics.Metrics,
	log *slog.Logger,
	lootCoinRate int64) *CheckoutServiceImpl {
	if lootCoinRate <= 0 {
		lootCoinRate = domain.LootCoinRate
	}
	return &CheckoutServiceImpl{
		repo:         repo,
		gateway:      gateway,
		cache:        cartCache,
		metrics:      m,
		log:          log.With("component", "checkout"),
		lootCoinRate: lootCoinRate,
	}
}
