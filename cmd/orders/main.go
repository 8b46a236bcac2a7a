package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/catalog"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/config"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/dashboard"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/messaging"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/orders"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/reservation"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/telemetry"
)

const serviceName = "orders"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to init meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	var (
		db    *sql.DB
		store orders.Store
	)
	if cfg.PostgresURL != "" {
		db, err = telemetry.OpenPostgres(ctx, cfg.PostgresURL, cfg.DBSchema)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = orders.NewOrderRepository(db)
	} else {
		logger.Warn("POSTGRES_URL not set, orders are kept in memory")
		store = orders.NewMemoryStore()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, banking payments will be rejected until it recovers", "error", err, "addr", cfg.RedisAddr)
	}

	var sink orders.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewPublisher(cfg.KafkaBrokers, logger)
		defer func() { _ = publisher.Close() }()
		sink = publisher
	} else {
		logger.Warn("KAFKA_BROKERS not set, outbound events are disabled")
	}

	opts := []orders.Option{orders.WithReservationWindow(cfg.ReservationWindow)}
	if db != nil {
		opts = append(opts, orders.WithCatalog(catalog.NewRepository(db)))
	}
	svc := orders.NewService(store, reservation.NewRedisCache(redisClient), sink, logger, opts...)

	mux := http.NewServeMux()
	orders.NewHandler(svc, logger).Register(mux)
	if db != nil {
		dashboard.NewHandler(dashboard.NewRepository(db), logger).Register(mux)
	}
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", cfg.Port, "version", cfg.ServiceVersion)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
