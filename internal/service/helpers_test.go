package service

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/loot_kingdom/internal/cache"
	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/metrics"
	"github.com/fjod/loot_kingdom/internal/payment"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"github.com/fjod/loot_kingdom/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	url      string
	err      error
	requests []payment.CheckoutRequest
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.url, g.err
}

type env struct {
	repo     *r.Repository
	mr       *miniredis.Miniredis
	cache    *cache.RedisCache
	metrics  *metrics.Metrics
	gateway  *fakeGateway
	checkout *CheckoutServiceImpl
	cart     *CartService
	loyalty  *LoyaltyService
	catalog  *CatalogService
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	repo, err := r.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations("../repository/migrations"))
	t.Cleanup(func() { _ = repo.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cartCache := cache.NewRedisCache(client, 0)

	m := metrics.New()
	gw := &fakeGateway{url: "https://pay.example.com/redirect"}
	log := logger.Nop()

	return &env{
		repo:     repo,
		mr:       mr,
		cache:    cartCache,
		metrics:  m,
		gateway:  gw,
		checkout: NewCheckoutService(repo, gw, cartCache, m, log, domain.LootCoinRate),
		cart:     NewCartService(repo, cartCache, log),
		loyalty:  NewLoyaltyService(repo, m, log),
		catalog:  NewCatalogService(repo),
	}
}

func (e *env) newUser(t *testing.T, coins int64) *domain.User {
	t.Helper()
	u := &domain.User{Email: uuid.NewString() + "@example.com", Name: "Player", LootCoins: coins}
	require.NoError(t, e.repo.CreateUser(context.Background(), u))
	return u
}

func (e *env) newProduct(t *testing.T, price int64, stock int32) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: "Collectible " + uuid.NewString()[:8], Price: price, Stock: stock}
	require.NoError(t, e.repo.CreateProduct(context.Background(), p))
	return p
}

// putInCart bypasses the soft stock check so tests can build carts that
// checkout must reject.
func (e *env) putInCart(t *testing.T, userID, productID int64, qty int32) {
	t.Helper()
	_, err := e.repo.AddCartItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	u, err := e.repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.LootCoins
}

func (e *env) stock(t *testing.T, productID int64) int32 {
	t.Helper()
	p, err := e.repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (e *env) cartLen(t *testing.T, userID int64) int {
	t.Helper()
	lines, err := e.repo.GetCartLines(context.Background(), userID)
	require.NoError(t, err)
	return len(lines)
}

func (e *env) outboxTypes(t *testing.T) []string {
	t.Helper()
	events, err := e.repo.GetUnprocessedEvents(context.Background(), 100)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
