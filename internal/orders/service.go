package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

var tracer = otel.Tracer("orders/service")

const (
	DefaultReservationWindow = 3 * time.Minute

	orderCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderCodeLength   = 11
	maxCodeAttempts   = 3
	maxSweepAttempts  = 3
)

// ReservationCache mirrors held banking orders. Snapshot returns nil, nil
// when nothing is held for the id.
type ReservationCache interface {
	Hold(ctx context.Context, order *domain.Order, ttl time.Duration) error
	Snapshot(ctx context.Context, id string) (*domain.Order, error)
	Release(ctx context.Context, id string) error
}

type EventSink interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// Catalog resolves the read-only product and address data attached to
// search index events.
type Catalog interface {
	ProductSlugs(ctx context.Context, productIDs []string) ([]string, error)
	AddressPhone(ctx context.Context, addressID string) (string, error)
}

type Service struct {
	store   Store
	cache   ReservationCache
	sink    EventSink
	catalog Catalog
	logger  *slog.Logger
	metrics *serviceMetrics

	window  time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithReservationWindow(window time.Duration) Option {
	return func(s *Service) {
		s.window = window
	}
}

func WithCatalog(catalog Catalog) Option {
	return func(s *Service) {
		s.catalog = catalog
	}
}

func WithCodeGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		s.newCode = fn
	}
}

// NewService builds the lifecycle engine. sink may be nil, in which case
// no events are published.
func NewService(store Store, cache ReservationCache, sink EventSink, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cache:   cache,
		sink:    sink,
		logger:  logger,
		metrics: newServiceMetrics(),
		window:  DefaultReservationWindow,
		now:     time.Now,
		newCode: generateOrderCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func generateOrderCode() (string, error) {
	return gonanoid.Generate(orderCodeAlphabet, orderCodeLength)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

type CreateOrderInput struct {
	UserID    string
	AddressID string
	Username  string
	Payment   domain.Payment
	Details   []domain.OrderDetail
}

func (in CreateOrderInput) validate() error {
	var problems []string
	if in.UserID == "" {
		problems = append(problems, "user_id is required")
	}
	if in.AddressID == "" {
		problems = append(problems, "address_id is required")
	}
	if in.Payment != "" && !in.Payment.Valid() {
		problems = append(problems, fmt.Sprintf("unknown payment %q", in.Payment))
	}
	if len(in.Details) == 0 {
		problems = append(problems, "order_details must not be empty")
	}
	seen := make(map[string]bool, len(in.Details))
	for _, d := range in.Details {
		switch {
		case d.ProductID == "":
			problems = append(problems, "order_details.product_id is required")
		case d.Quantity <= 0:
			problems = append(problems, fmt.Sprintf("quantity for %s must be positive", d.ProductID))
		case seen[d.ProductID]:
			problems = append(problems, fmt.Sprintf("product %s listed twice", d.ProductID))
		}
		seen[d.ProductID] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.create")
	defer span.End()

	order, err := s.create(ctx, in)
	s.record(ctx, span, "create", err)
	if err != nil {
		return nil, err
	}

	s.announceCreated(ctx, order, in.Username)
	s.logger.Info("order created", "order_id", order.ID, "order_code", order.OrderCode, "payment", order.Payment)
	return order, nil
}

func (s *Service) create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	payment := in.Payment
	if payment == "" {
		payment = domain.PaymentCash
	}

	now := s.clock()
	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		AddressID: in.AddressID,
		Status:    domain.OrderStatusCreated,
		Payment:   payment,
		Details:   append([]domain.OrderDetail(nil), in.Details...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if payment == domain.PaymentBanking {
		unpaid := domain.PaymentStatusUnpaid
		expires := now.Add(s.window)
		order.PaymentStatus = &unpaid
		order.ExpiresAt = &expires
	}

	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate order code: %w", err)
		}
		order.OrderCode = code

		err = s.store.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateCode) && attempt < maxCodeAttempts {
			s.logger.Warn("order code collision, regenerating", "order_code", code, "attempt", attempt)
			continue
		}
		return nil, fmt.Errorf("%w: create order: %w", ErrUnavailable, err)
	}

	if payment == domain.PaymentBanking {
		if err := s.cache.Hold(ctx, order, s.window); err != nil {
			s.logger.Warn("failed to cache banking reservation", "error", err, "order_id", order.ID)
		}
	}

	return order, nil
}

func (s *Service) announceCreated(ctx context.Context, order *domain.Order, username string) {
	if username != "" {
		s.emit(ctx, domain.TopicCartClean, order.UserID, domain.CartCleanRequested{
			Username:   username,
			UserID:     order.UserID,
			ProductIDs: order.ProductIDs(),
		})
	}

	if s.catalog == nil {
		return
	}

	slugs, err := s.catalog.ProductSlugs(ctx, order.ProductIDs())
	if err != nil {
		s.logger.Error("failed to resolve product slugs", "error", err, "order_id", order.ID)
		return
	}
	phone, err := s.catalog.AddressPhone(ctx, order.AddressID)
	if err != nil {
		s.logger.Error("failed to resolve address phone", "error", err, "order_id", order.ID)
		return
	}

	s.emit(ctx, domain.TopicSearchIndex, order.ID, domain.SearchIndexRequested{
		ID:        order.ID,
		OrderCode: order.OrderCode,
		UserID:    order.UserID,
		Slugs:     slugs,
		Phone:     phone,
	})
}

// load fetches one order and runs the expiration sweep on it.
func (s *Service) load(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load order %s: %w", ErrUnavailable, id, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s.sweepOne(ctx, order)
}

func (s *Service) save(ctx context.Context, order *domain.Order) error {
	err := s.store.Save(ctx, order)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return fmt.Errorf("save order %s: %w", order.ID, err)
	default:
		return fmt.Errorf("%w: save order %s: %w", ErrUnavailable, order.ID, err)
	}
}

// transition runs load, apply and save for a single order. A failed apply
// or save leaves the stored order untouched.
func (s *Service) transition(ctx context.Context, op domain.Operation, id string, apply func(o *domain.Order, now time.Time) error) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders."+string(op),
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	order, err := s.load(ctx, id)
	var before domain.OrderStatus
	if err == nil {
		before = order.Status
		err = apply(order, s.clock())
	}
	if err == nil {
		err = s.save(ctx, order)
	}
	s.record(ctx, span, string(op), err)
	if err != nil {
		return nil, err
	}

	if order.Payment == domain.PaymentBanking && before == domain.OrderStatusCreated && order.Status != domain.OrderStatusCreated {
		s.release(ctx, order.ID)
	}

	s.logger.Info("order transitioned", "order_id", order.ID, "operation", op, "from", before, "to", order.Status)
	return order, nil
}

func (s *Service) release(ctx context.Context, id string) {
	if err := s.cache.Release(ctx, id); err != nil {
		s.logger.Warn("failed to release banking reservation", "error", err, "order_id", id)
	}
}

// emit publishes without blocking the caller on the outcome. Failures are
// logged and dropped; the state change has already been committed.
func (s *Service) emit(ctx context.Context, topic, key string, event any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(context.WithoutCancel(ctx), topic, key, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "topic", topic, "key", key)
	}
}

func (s *Service) record(ctx context.Context, span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.transition(ctx, op, result)
}
