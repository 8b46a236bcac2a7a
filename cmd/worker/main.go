package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/catalog"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/config"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/messaging"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/orders"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/reservation"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/telemetry"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/worker"
)

const serviceName = "orders-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := telemetry.OpenPostgres(ctx, cfg.PostgresURL, cfg.DBSchema)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()

	publisher := messaging.NewPublisher(cfg.KafkaBrokers, logger)
	defer func() { _ = publisher.Close() }()

	catalogRepo := catalog.NewRepository(db)
	svc := orders.NewService(orders.NewOrderRepository(db), reservation.NewRedisCache(redisClient), publisher, logger,
		orders.WithReservationWindow(cfg.ReservationWindow),
		orders.WithCatalog(catalogRepo),
	)

	events := worker.NewEventHandler(svc, logger)
	replication := catalog.NewEventHandler(catalogRepo, logger)

	handlers := map[string]messaging.HandlerFunc{
		domain.TopicOrderPackaged:  events.HandlePackaged,
		domain.TopicOrderCancelled: events.HandleCancelled,
		domain.TopicOrderCommented: events.HandleCommented,
		domain.TopicMakePayment:    events.HandleMakePayment,
		domain.TopicProductCreated: replication.HandleProductCreated,
		domain.TopicAddressCreated: replication.HandleAddressCreated,
	}

	g, gctx := errgroup.WithContext(ctx)
	for topic, handler := range handlers {
		consumer := messaging.NewConsumer(cfg.KafkaBrokers, topic, cfg.KafkaGroupID, logger)
		defer func() { _ = consumer.Close() }()

		g.Go(func() error {
			return consumer.Consume(gctx, handler)
		})
	}

	logger.Info("starting orders worker", "brokers", cfg.KafkaBrokers, "topics", len(handlers))

	if err := g.Wait(); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
