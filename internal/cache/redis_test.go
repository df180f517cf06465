package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, 0), mr
}

func sampleCart(userID int64) *domain.Cart {
	return &domain.Cart{
		UserID: userID,
		Items: []domain.CartLine{
			{ProductID: 1, ProductName: "Figure", Quantity: 2, UnitPrice: 1500, Stock: 10},
			{ProductID: 2, ProductName: "Plush", Quantity: 1, UnitPrice: 500, Stock: 3},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestGet_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetGet_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	cart := sampleCart(42)

	require.NoError(t, cache.Set(ctx, 42, cart))
	assert.True(t, mr.Exists("cart:42"))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
	assert.Equal(t, int64(3500), got.Total())
}

func TestSet_TTLHasJitterWindow(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), 7, sampleCart(7)))

	ttl := mr.TTL("cart:7")
	assert.GreaterOrEqual(t, ttl, defaultTTL)
	assert.Less(t, ttl, defaultTTL+5*time.Minute)
}

func TestGet_CorruptedEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:9", "{not json"))

	_, err := cache.Get(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGet_ManuallySeeded(t *testing.T) {
	cache, mr := setupTestRedis(t)
	raw, err := json.Marshal(sampleCart(3))
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:3", string(raw)))

	got, err := cache.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, 5, sampleCart(5)))

	require.NoError(t, cache.Delete(ctx, 5))
	assert.False(t, mr.Exists("cart:5"))
	assert.NoError(t, cache.Delete(ctx, 5), "deleting a missing key is not an error")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
