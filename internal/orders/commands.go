package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

type EmployeeCommand struct {
	OrderID  string
	Phone    string
	BranchID string
}

type ShipperCommand struct {
	OrderID string
	Phone   string
}

type CustomerCommand struct {
	OrderID string
	UserID  string
}

type CommentInput struct {
	OrderID   string
	ProductID string
	Star      int
	Comment   string
	Username  string
	Images    []string
}

func actor(id string) (domain.Actor, error) {
	a, err := domain.Human(id)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return a, nil
}

func requireBranch(branchID string) error {
	if branchID == "" {
		return fmt.Errorf("%w: branch_id is required", ErrValidation)
	}
	return nil
}

func (s *Service) ApproveByEmployee(ctx context.Context, cmd EmployeeCommand) (*domain.Order, error) {
	employee, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}
	if err := requireBranch(cmd.BranchID); err != nil {
		return nil, err
	}

	order, err := s.transition(ctx, domain.OpApprove, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.Approve(employee, cmd.BranchID, now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.TopicApprovedByEmployee, order.ID, domain.StockReservationRequested{
		OrderID:      order.ID,
		OrderDetails: order.Details,
		BranchID:     order.BranchID,
	})
	return order, nil
}

func (s *Service) RejectByEmployee(ctx context.Context, cmd EmployeeCommand) (*domain.Order, error) {
	employee, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}
	if err := requireBranch(cmd.BranchID); err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpReject, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.Reject(employee, cmd.BranchID, now)
	})
}

func (s *Service) StartShipmentByEmployee(ctx context.Context, cmd EmployeeCommand) (*domain.Order, error) {
	employee, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpPackage, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.Package(employee, now)
	})
}

func (s *Service) StartShipmentByShipper(ctx context.Context, cmd ShipperCommand) (*domain.Order, error) {
	shipper, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpStartShipment, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.StartShipment(shipper, now)
	})
}

func (s *Service) CompleteByShipper(ctx context.Context, cmd ShipperCommand) (*domain.Order, error) {
	shipper, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpCompleteDelivery, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.CompleteDelivery(shipper, now)
	})
}

func (s *Service) CancelByShipper(ctx context.Context, cmd ShipperCommand) (*domain.Order, error) {
	shipper, err := actor(cmd.Phone)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpCancelByShipper, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		return o.CancelByShipper(shipper, now)
	})
}

// owned rejects customer commands on orders that belong to someone else
// with not-found, so order ids of other users are not disclosed.
func owned(o *domain.Order, userID string) error {
	if o.UserID != userID {
		return fmt.Errorf("%w: %s", ErrNotFound, o.ID)
	}
	return nil
}

func (s *Service) Cancel(ctx context.Context, cmd CustomerCommand) (*domain.Order, error) {
	customer, err := actor(cmd.UserID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpCancel, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		if err := owned(o, cmd.UserID); err != nil {
			return err
		}
		return o.Cancel(customer, now)
	})
}

func (s *Service) Return(ctx context.Context, cmd CustomerCommand) (*domain.Order, error) {
	customer, err := actor(cmd.UserID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpReturn, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		if err := owned(o, cmd.UserID); err != nil {
			return err
		}
		return o.Return(customer, now)
	})
}

func (s *Service) MarkAsReceived(ctx context.Context, cmd CustomerCommand) (*domain.Order, error) {
	if _, err := actor(cmd.UserID); err != nil {
		return nil, err
	}

	return s.transition(ctx, domain.OpMarkReceived, cmd.OrderID, func(o *domain.Order, now time.Time) error {
		if err := owned(o, cmd.UserID); err != nil {
			return err
		}
		return o.MarkReceived(now)
	})
}

// Resell places a new order with the details, payment and address of a
// completed or cancelled one. The source order is not modified.
func (s *Service) Resell(ctx context.Context, cmd CustomerCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders."+string(domain.OpResell))
	defer span.End()

	order, err := s.resell(ctx, cmd)
	s.record(ctx, span, string(domain.OpResell), err)
	if err != nil {
		return nil, err
	}

	s.announceCreated(ctx, order, "")
	s.logger.Info("order resold", "order_id", order.ID, "source_order_id", cmd.OrderID)
	return order, nil
}

func (s *Service) resell(ctx context.Context, cmd CustomerCommand) (*domain.Order, error) {
	if _, err := actor(cmd.UserID); err != nil {
		return nil, err
	}

	source, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := owned(source, cmd.UserID); err != nil {
		return nil, err
	}
	if !source.Can(domain.OpResell) {
		return nil, &domain.TransitionError{Op: domain.OpResell, From: source.Status}
	}

	return s.create(ctx, CreateOrderInput{
		UserID:    source.UserID,
		AddressID: source.AddressID,
		Payment:   source.Payment,
		Details:   source.Details,
	})
}

func (s *Service) Comment(ctx context.Context, in CommentInput) (*domain.Order, error) {
	if in.ProductID == "" || in.Username == "" {
		return nil, fmt.Errorf("%w: product_id and username are required", ErrValidation)
	}
	if in.Star < 1 || in.Star > 5 {
		return nil, fmt.Errorf("%w: star must be between 1 and 5", ErrValidation)
	}

	order, err := s.transition(ctx, domain.OpComment, in.OrderID, func(o *domain.Order, now time.Time) error {
		return o.Comment(now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.TopicRated, order.ID, domain.OrderRated{
		OrderID:   order.ID,
		ProductID: in.ProductID,
		Star:      in.Star,
		Comment:   in.Comment,
		Username:  in.Username,
		Images:    in.Images,
	})
	return order, nil
}

func (s *Service) UpdateAddress(ctx context.Context, id, addressID string) (*domain.Order, error) {
	if addressID == "" {
		return nil, fmt.Errorf("%w: address_id is required", ErrValidation)
	}

	return s.transition(ctx, domain.OpUpdateAddress, id, func(o *domain.Order, now time.Time) error {
		return o.UpdateAddress(addressID, now)
	})
}

// Delete tombstones the order; its history stays in the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "orders.delete")
	defer span.End()

	err := s.delete(ctx, id)
	s.record(ctx, span, "delete", err)
	if err != nil {
		return err
	}

	s.release(ctx, id)
	s.logger.Info("order deleted", "order_id", id)
	return nil
}

func (s *Service) delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}

	err := s.store.SoftDelete(ctx, id, s.clock())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("delete order: %w", err)
	default:
		return fmt.Errorf("%w: delete order %s: %w", ErrUnavailable, id, err)
	}
}

// ApproveByBot applies the packaging pipeline's approval. It is rejected,
// not re-applied, once the order moved past Approved.
func (s *Service) ApproveByBot(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, domain.OpBotApprove, id, func(o *domain.Order, now time.Time) error {
		return o.BotApprove(now)
	})
}

func (s *Service) CancelByBot(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, domain.OpBotCancel, id, func(o *domain.Order, now time.Time) error {
		return o.BotCancel(now)
	})
}
