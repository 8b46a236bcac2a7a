package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client), mr
}

func bankingOrder() *domain.Order {
	unpaid := domain.PaymentStatusUnpaid
	expires := time.Date(2026, 3, 1, 10, 3, 0, 0, time.UTC)
	return &domain.Order{
		ID:            "0b5c8c1e-8f1f-4a1f-9a53-2f1d6f9c1a11",
		OrderCode:     "A1B2C3D4E5F",
		UserID:        "u-1",
		Status:        domain.OrderStatusCreated,
		Payment:       domain.PaymentBanking,
		PaymentStatus: &unpaid,
		ExpiresAt:     &expires,
		Details:       []domain.OrderDetail{{ProductID: "p-1", Quantity: 1}},
	}
}

func TestHoldAndSnapshot(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()
	order := bankingOrder()

	require.NoError(t, cache.Hold(ctx, order, 3*time.Minute))

	assert.True(t, mr.Exists(key(order.ID)))
	assert.Equal(t, 3*time.Minute, mr.TTL(key(order.ID)))

	got, err := cache.Snapshot(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.OrderCode, got.OrderCode)
	assert.Equal(t, domain.PaymentStatusUnpaid, *got.PaymentStatus)
	assert.True(t, order.ExpiresAt.Equal(*got.ExpiresAt))
}

func TestSnapshotMiss(t *testing.T) {
	cache, _ := setupCache(t)

	got, err := cache.Snapshot(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotExpires(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()
	order := bankingOrder()

	require.NoError(t, cache.Hold(ctx, order, 3*time.Minute))
	mr.FastForward(3*time.Minute + time.Second)

	got, err := cache.Snapshot(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRelease(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()
	order := bankingOrder()

	require.NoError(t, cache.Hold(ctx, order, time.Minute))
	require.NoError(t, cache.Release(ctx, order.ID))
	assert.False(t, mr.Exists(key(order.ID)))

	require.NoError(t, cache.Release(ctx, "never-held"))
}

func TestHoldRejectsNonPositiveTTL(t *testing.T) {
	cache, _ := setupCache(t)
	assert.Error(t, cache.Hold(context.Background(), bankingOrder(), 0))
}

func TestSnapshotCorruptEntry(t *testing.T) {
	cache, mr := setupCache(t)
	require.NoError(t, mr.Set(key("bad"), "{not json"))

	_, err := cache.Snapshot(context.Background(), "bad")
	assert.Error(t, err)
}

func TestUnavailableServer(t *testing.T) {
	cache, mr := setupCache(t)
	mr.Close()

	_, err := cache.Snapshot(context.Background(), "any")
	assert.Error(t, err)
}
