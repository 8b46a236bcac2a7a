package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid transition")

type Operation string

const (
	OpApprove          Operation = "approve"
	OpReject           Operation = "reject"
	OpPackage          Operation = "package"
	OpStartShipment    Operation = "start_shipment"
	OpCompleteDelivery Operation = "complete_delivery"
	OpCancelByShipper  Operation = "cancel_by_shipper"
	OpMarkReceived     Operation = "mark_received"
	OpCancel           Operation = "cancel"
	OpReturn           Operation = "return"
	OpComment          Operation = "comment"
	OpResell           Operation = "resell"
	OpUpdateAddress    Operation = "update_address"
	OpExpire           Operation = "expire"
	OpBotApprove       Operation = "bot_approve"
	OpBotCancel        Operation = "bot_cancel"
	OpMakePayment      Operation = "make_payment"
)

var allowedFrom = map[Operation][]OrderStatus{
	OpApprove:          {OrderStatusCreated},
	OpReject:           {OrderStatusCreated, OrderStatusApproved},
	OpPackage:          {OrderStatusApproved},
	OpStartShipment:    {OrderStatusPackaged},
	OpCompleteDelivery: {OrderStatusStarted},
	OpCancelByShipper:  {OrderStatusStarted},
	OpMarkReceived:     {OrderStatusStarted},
	OpCancel:           {OrderStatusCreated, OrderStatusApproved},
	OpReturn:           {OrderStatusCompleted},
	OpComment:          {OrderStatusCompleted},
	OpResell:           {OrderStatusCompleted, OrderStatusCancelled},
	OpUpdateAddress:    {OrderStatusCreated, OrderStatusApproved},
	OpExpire:           {OrderStatusCreated},
	OpBotApprove:       {OrderStatusCreated, OrderStatusApproved},
	OpBotCancel:        {OrderStatusCreated, OrderStatusApproved},
	OpMakePayment:      {OrderStatusCreated},
}

// Automated reports whether the operation is driven by the system actor.
func (op Operation) Automated() bool {
	return op == OpExpire || op == OpBotApprove || op == OpBotCancel
}

type TransitionError struct {
	Op     Operation
	From   OrderStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s order in status %s: %s", e.Op, e.From, e.Reason)
	}
	return fmt.Sprintf("cannot %s order in status %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Can reports whether op is allowed from the order's current status.
func (o *Order) Can(op Operation) bool {
	for _, s := range allowedFrom[op] {
		if o.Status == s {
			return true
		}
	}
	return false
}

func (o *Order) guard(op Operation) error {
	if !o.Can(op) {
		return &TransitionError{Op: op, From: o.Status}
	}
	return nil
}

func (o *Order) Approve(employee Actor, branchID string, at time.Time) error {
	if err := o.guard(OpApprove); err != nil {
		return err
	}
	o.Status = OrderStatusApproved
	setStamp(&o.ApprovedAt, &o.ApprovedBy, at, employee)
	o.BranchID = branchID
	o.markPaid()
	o.UpdatedAt = at
	return nil
}

func (o *Order) Reject(employee Actor, branchID string, at time.Time) error {
	if err := o.guard(OpReject); err != nil {
		return err
	}
	o.Status = OrderStatusCancelled
	setStamp(&o.CancelledAt, &o.CancelledBy, at, employee)
	o.BranchID = branchID
	o.UpdatedAt = at
	return nil
}

func (o *Order) Package(employee Actor, at time.Time) error {
	if err := o.guard(OpPackage); err != nil {
		return err
	}
	o.Status = OrderStatusPackaged
	setStamp(&o.PackagedAt, &o.PackagedBy, at, employee)
	o.UpdatedAt = at
	return nil
}

func (o *Order) StartShipment(shipper Actor, at time.Time) error {
	if err := o.guard(OpStartShipment); err != nil {
		return err
	}
	o.Status = OrderStatusStarted
	setStamp(&o.StartedAt, &o.StartedBy, at, shipper)
	o.UpdatedAt = at
	return nil
}

// CompleteDelivery records the shipper's hand-over. The order stays Started
// until the customer marks it as received.
func (o *Order) CompleteDelivery(shipper Actor, at time.Time) error {
	if err := o.guard(OpCompleteDelivery); err != nil {
		return err
	}
	if o.ReceivedAt != nil {
		return &TransitionError{Op: OpCompleteDelivery, From: o.Status, Reason: "delivery already completed"}
	}
	o.ReceivedAt = &at
	o.CompletedBy = &shipper
	o.UpdatedAt = at
	return nil
}

func (o *Order) CancelByShipper(shipper Actor, at time.Time) error {
	if err := o.guard(OpCancelByShipper); err != nil {
		return err
	}
	o.Status = OrderStatusCancelled
	setStamp(&o.CancelledAt, &o.CancelledBy, at, shipper)
	o.UpdatedAt = at
	return nil
}

func (o *Order) MarkReceived(at time.Time) error {
	if err := o.guard(OpMarkReceived); err != nil {
		return err
	}
	o.Status = OrderStatusCompleted
	if o.CompletedAt == nil {
		o.CompletedAt = &at
	}
	o.UpdatedAt = at
	return nil
}

func (o *Order) Cancel(customer Actor, at time.Time) error {
	if err := o.guard(OpCancel); err != nil {
		return err
	}
	o.Status = OrderStatusCancelled
	setStamp(&o.CancelledAt, &o.CancelledBy, at, customer)
	o.UpdatedAt = at
	return nil
}

func (o *Order) Return(customer Actor, at time.Time) error {
	if err := o.guard(OpReturn); err != nil {
		return err
	}
	o.Status = OrderStatusReturned
	setStamp(&o.ReturnedAt, &o.ReturnedBy, at, customer)
	o.UpdatedAt = at
	return nil
}

// Comment keeps the first rating date; later comments are accepted without
// touching it.
func (o *Order) Comment(at time.Time) error {
	if err := o.guard(OpComment); err != nil {
		return err
	}
	if o.RatingDate == nil {
		o.RatingDate = &at
		o.UpdatedAt = at
	}
	return nil
}

func (o *Order) UpdateAddress(addressID string, at time.Time) error {
	if err := o.guard(OpUpdateAddress); err != nil {
		return err
	}
	o.AddressID = addressID
	o.UpdatedAt = at
	return nil
}

// Expire cancels a banking order whose reservation lapsed before payment
// was confirmed.
func (o *Order) Expire(at time.Time) error {
	if err := o.guard(OpExpire); err != nil {
		return err
	}
	if !o.ReservationLapsed(at) {
		return &TransitionError{Op: OpExpire, From: o.Status, Reason: "reservation still held"}
	}
	o.systemCancel(at)
	return nil
}

func (o *Order) BotCancel(at time.Time) error {
	if err := o.guard(OpBotCancel); err != nil {
		return err
	}
	o.systemCancel(at)
	return nil
}

// BotApprove is applied by the packaging pipeline. It backfills the approval
// stamp with the system actor when no employee approved the order first.
func (o *Order) BotApprove(at time.Time) error {
	if err := o.guard(OpBotApprove); err != nil {
		return err
	}
	o.Status = OrderStatusApproved
	setStamp(&o.ApprovedAt, &o.ApprovedBy, at, System)
	o.markPaid()
	o.UpdatedAt = at
	return nil
}

// StartPayment moves a held banking reservation to Processing.
func (o *Order) StartPayment(at time.Time) error {
	if err := o.guard(OpMakePayment); err != nil {
		return err
	}
	if o.Payment != PaymentBanking {
		return &TransitionError{Op: OpMakePayment, From: o.Status, Reason: "order is not paid by banking"}
	}
	if o.ReservationLapsed(at) {
		return &TransitionError{Op: OpMakePayment, From: o.Status, Reason: "reservation lapsed"}
	}
	if o.PaymentStatus == nil || *o.PaymentStatus != PaymentStatusUnpaid {
		return &TransitionError{Op: OpMakePayment, From: o.Status, Reason: "payment already started"}
	}
	o.setPaymentStatus(PaymentStatusProcessing)
	o.UpdatedAt = at
	return nil
}

func (o *Order) systemCancel(at time.Time) {
	o.Status = OrderStatusCancelled
	setStamp(&o.CancelledAt, &o.CancelledBy, at, System)
	if o.Payment == PaymentBanking {
		if o.PaymentStatus != nil && *o.PaymentStatus == PaymentStatusProcessing {
			o.setPaymentStatus(PaymentStatusFailed)
		} else {
			o.setPaymentStatus(PaymentStatusUnpaid)
		}
	}
	o.UpdatedAt = at
}

func (o *Order) markPaid() {
	if o.Payment == PaymentBanking {
		o.setPaymentStatus(PaymentStatusPaid)
	}
}

func (o *Order) setPaymentStatus(s PaymentStatus) {
	o.PaymentStatus = &s
}

func setStamp(at **time.Time, by **Actor, now time.Time, actor Actor) {
	if *at == nil {
		*at = &now
	}
	if *by == nil {
		*by = &actor
	}
}
