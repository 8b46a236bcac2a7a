//go:build integration

package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/messaging"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/orders"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/reservation"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/testutil"
)

func TestPackagedEventApprovesOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers := testutil.Kafka(ctx, t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := orders.NewMemoryStore()
	svc := orders.NewService(store, reservation.NewRedisCache(client), nil, logger)

	order, err := svc.Create(ctx, orders.CreateOrderInput{
		UserID:    "u-1",
		AddressID: "a-1",
		Payment:   domain.PaymentBanking,
		Details:   []domain.OrderDetail{{ProductID: "p-1", Quantity: 1}},
	})
	require.NoError(t, err)

	publisher := messaging.NewPublisher(brokers, logger, messaging.WithSyncWrites())
	defer func() { _ = publisher.Close() }()
	require.NoError(t, publisher.Publish(ctx, domain.TopicOrderPackaged, order.ID, order.ID))

	consumer := messaging.NewConsumer(brokers, domain.TopicOrderPackaged, "worker-test", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Consume(consumeCtx, NewEventHandler(svc, logger).HandlePackaged) }()

	require.Eventually(t, func() bool {
		got, err := store.GetByID(ctx, order.ID)
		return err == nil && got != nil && got.Status == domain.OrderStatusApproved
	}, time.Minute, 200*time.Millisecond)

	got, err := svc.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.ApprovedBy.IsSystem())
	assert.Equal(t, domain.PaymentStatusPaid, *got.PaymentStatus)
}
