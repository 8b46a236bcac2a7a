package orders

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

const (
	ShipperPageSize = 6

	// StatusAll selects every status in the queue queries.
	StatusAll = "all"
)

type EmployeeQuery struct {
	Phone    string
	Status   string
	BranchID string
}

type ShipperQuery struct {
	Phone    string
	Status   string
	BranchID string
	Page     int
}

func (s *Service) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.find_by_id")
	defer span.End()

	order, err := s.load(ctx, id)
	s.record(ctx, span, "find_by_id", err)
	return order, err
}

func (s *Service) FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Order, error) {
	if len(ids) == 0 {
		return []*domain.Order{}, nil
	}
	return s.list(ctx, "find_all_by_ids", Filter{IDs: ids})
}

// FindAll lists a customer's orders, optionally narrowed to one status.
func (s *Service) FindAll(ctx context.Context, userID, status string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	statuses, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "find_all", Filter{UserID: userID, Statuses: statuses})
}

func (s *Service) FindAllByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.FindAll(ctx, userID, StatusAll)
}

// FindAllByEmployee returns the employee queue. Created orders are visible
// to every branch so any employee can pick them up.
func (s *Service) FindAllByEmployee(ctx context.Context, q EmployeeQuery) ([]*domain.Order, error) {
	if _, err := actor(q.Phone); err != nil {
		return nil, err
	}

	var filter Filter
	switch q.Status {
	case string(domain.OrderStatusCreated):
		filter = Filter{Statuses: []domain.OrderStatus{domain.OrderStatusCreated}}
	case StatusAll, "":
		if err := requireBranch(q.BranchID); err != nil {
			return nil, err
		}
		filter = Filter{BranchID: q.BranchID, OrCreated: true}
	default:
		statuses, err := parseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		if err := requireBranch(q.BranchID); err != nil {
			return nil, err
		}
		filter = Filter{Statuses: statuses, BranchID: q.BranchID}
	}

	return s.list(ctx, "find_all_by_employee", filter)
}

// GetOrdersByShipper returns one page of the shipper queue for a status.
func (s *Service) GetOrdersByShipper(ctx context.Context, q ShipperQuery) ([]*domain.Order, error) {
	if _, err := actor(q.Phone); err != nil {
		return nil, err
	}
	if err := requireBranch(q.BranchID); err != nil {
		return nil, err
	}
	if q.Page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}

	filter := Filter{BranchID: q.BranchID}
	switch domain.OrderStatus(q.Status) {
	case domain.OrderStatusPackaged:
		filter.Statuses = []domain.OrderStatus{domain.OrderStatusPackaged}
		filter.SortBy = SortPackagedAt
	case domain.OrderStatusStarted:
		filter.Statuses = []domain.OrderStatus{domain.OrderStatusStarted}
		filter.Undelivered = true
		filter.SortBy = SortStartedAt
	case domain.OrderStatusCompleted:
		filter.CompletedBy = q.Phone
		filter.SortBy = SortCompletedAt
	case domain.OrderStatusCancelled:
		filter.Statuses = []domain.OrderStatus{domain.OrderStatusCancelled}
		filter.CancelledBy = q.Phone
		filter.SortBy = SortCancelledAt
	default:
		return nil, fmt.Errorf("%w: shipper queue has no status %q", ErrValidation, q.Status)
	}
	filter.Limit = ShipperPageSize
	filter.Offset = (q.Page - 1) * ShipperPageSize

	return s.list(ctx, "get_orders_by_shipper", filter)
}

func (s *Service) FindAllByAdmin(ctx context.Context, status string) ([]*domain.Order, error) {
	statuses, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, "find_all_by_admin", Filter{Statuses: statuses})
}

// list runs filter against the store and sweeps the result. Orders moved out
// of the filter by the sweep are dropped.
func (s *Service) list(ctx context.Context, name string, filter Filter) ([]*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders."+name)
	defer span.End()

	orders, err := s.find(ctx, filter)
	s.record(ctx, span, name, err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

func (s *Service) find(ctx context.Context, filter Filter) ([]*domain.Order, error) {
	found, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: find orders: %w", ErrUnavailable, err)
	}

	swept := s.sweep(ctx, found)

	orders := swept[:0]
	for _, o := range swept {
		if filter.Match(o) {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func parseStatus(status string) ([]domain.OrderStatus, error) {
	if status == "" || status == StatusAll {
		return nil, nil
	}
	s := domain.OrderStatus(status)
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return []domain.OrderStatus{s}, nil
}
