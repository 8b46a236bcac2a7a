package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

// sweep cancels every banking order in the set whose reservation lapsed and
// returns the set with those orders replaced by their stored state. An order
// that could not be cancelled is logged and left out; the next read retries it.
func (s *Service) sweep(ctx context.Context, orders []*domain.Order) []*domain.Order {
	swept := orders[:0]
	for _, order := range orders {
		current, err := s.sweepOne(ctx, order)
		if err != nil {
			s.metrics.reservationSweepFailed(ctx)
			s.logger.Warn("expiration sweep failed", "error", err, "order_id", order.ID)
			continue
		}
		swept = append(swept, current)
	}
	return swept
}

func (s *Service) sweepOne(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	for attempt := 1; ; attempt++ {
		now := s.clock()
		if !order.ReservationLapsed(now) {
			return order, nil
		}

		expired := order.Clone()
		if err := expired.Expire(now); err != nil {
			return nil, err
		}

		err := s.store.Save(ctx, expired)
		if err == nil {
			s.metrics.reservationExpired(ctx)
			s.release(ctx, expired.ID)
			s.logger.Info("banking reservation expired", "order_id", expired.ID,
				"payment_status", *expired.PaymentStatus)
			return expired, nil
		}

		// Another writer got there first; retry against its state.
		if errors.Is(err, ErrConflict) && attempt < maxSweepAttempts {
			fresh, getErr := s.store.GetByID(ctx, order.ID)
			if getErr != nil {
				return nil, fmt.Errorf("%w: reload order %s: %w", ErrUnavailable, order.ID, getErr)
			}
			if fresh == nil {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, order.ID)
			}
			order = fresh
			continue
		}

		return nil, fmt.Errorf("%w: expire order %s: %w", ErrUnavailable, order.ID, err)
	}
}

// MakePayment moves a held banking order to Processing. The cached snapshot
// must still exist and the stored order must still be a live reservation.
func (s *Service) MakePayment(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders."+string(domain.OpMakePayment))
	defer span.End()

	order, err := s.makePayment(ctx, id)
	s.record(ctx, span, string(domain.OpMakePayment), err)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.TopicOrderPaid, order.ID, domain.PaymentReceived{
		Order:     order,
		Timestamp: order.UpdatedAt,
	})
	s.logger.Info("banking payment started", "order_id", order.ID)
	return order, nil
}

func (s *Service) makePayment(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	snapshot, err := s.cache.Snapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: read reservation %s: %w", ErrUnavailable, id, err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoReservation, id)
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := order.StartPayment(s.clock()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoReservation, err)
	}

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// FindBankingOrder returns the order behind a banking reservation. A hold
// that lapsed is swept first and the cancelled order is returned.
func (s *Service) FindBankingOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load order %s: %w", ErrUnavailable, id, err)
	}
	if order == nil || order.Payment != domain.PaymentBanking {
		return nil, fmt.Errorf("%w: %s", ErrNoReservation, id)
	}

	held := order.Status == domain.OrderStatusCreated
	order, err = s.sweepOne(ctx, order)
	if err != nil {
		return nil, err
	}

	switch {
	case order.Status == domain.OrderStatusCreated:
		return order, nil
	case held && order.Status == domain.OrderStatusCancelled && order.CancelledBy != nil && order.CancelledBy.IsSystem():
		return order, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoReservation, id)
	}
}
