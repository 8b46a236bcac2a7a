package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "Created"
	OrderStatusApproved  OrderStatus = "Approved"
	OrderStatusPackaged  OrderStatus = "Packaged"
	OrderStatusStarted   OrderStatus = "Started"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
	OrderStatusReturned  OrderStatus = "Returned"
)

var orderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusApproved,
	OrderStatusPackaged,
	OrderStatusStarted,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusReturned,
}

func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no lifecycle operation can move the order on.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

type Payment string

const (
	PaymentCash    Payment = "Cash"
	PaymentBanking Payment = "Banking"
)

func (p Payment) Valid() bool {
	return p == PaymentCash || p == PaymentBanking
}

type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "Unpaid"
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusPaid       PaymentStatus = "Paid"
	PaymentStatusFailed     PaymentStatus = "Failed"
)

type OrderDetail struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order is the lifecycle aggregate. Stamp fields are written once through the
// transition methods in lifecycle.go and never overwritten.
type Order struct {
	ID        string `json:"id"`
	OrderCode string `json:"order_code"`
	UserID    string `json:"user_id"`
	AddressID string `json:"address_id"`
	BranchID  string `json:"branch_id,omitempty"`

	Status        OrderStatus    `json:"status"`
	Payment       Payment        `json:"payment"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	ExpiresAt     *time.Time     `json:"expiration_timestamp,omitempty"`

	ApprovedAt  *time.Time `json:"approved_date,omitempty"`
	ApprovedBy  *Actor     `json:"approved_by,omitempty"`
	PackagedAt  *time.Time `json:"packaged_date,omitempty"`
	PackagedBy  *Actor     `json:"packaged_by,omitempty"`
	StartedAt   *time.Time `json:"started_date,omitempty"`
	StartedBy   *Actor     `json:"started_by,omitempty"`
	ReceivedAt  *time.Time `json:"received_date,omitempty"`
	CompletedAt *time.Time `json:"completed_date,omitempty"`
	CompletedBy *Actor     `json:"completed_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_date,omitempty"`
	CancelledBy *Actor     `json:"cancelled_by,omitempty"`
	ReturnedAt  *time.Time `json:"returned_date,omitempty"`
	ReturnedBy  *Actor     `json:"returned_by,omitempty"`
	RatingDate  *time.Time `json:"rating_date,omitempty"`

	Details []OrderDetail `json:"order_details"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
	Version   int64      `json:"version"`
}

// Clone returns a deep copy so callers can mutate an order without touching
// the value held by a store or cache.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.PaymentStatus = clonePtr(o.PaymentStatus)
	c.ExpiresAt = clonePtr(o.ExpiresAt)
	c.ApprovedAt = clonePtr(o.ApprovedAt)
	c.ApprovedBy = clonePtr(o.ApprovedBy)
	c.PackagedAt = clonePtr(o.PackagedAt)
	c.PackagedBy = clonePtr(o.PackagedBy)
	c.StartedAt = clonePtr(o.StartedAt)
	c.StartedBy = clonePtr(o.StartedBy)
	c.ReceivedAt = clonePtr(o.ReceivedAt)
	c.CompletedAt = clonePtr(o.CompletedAt)
	c.CompletedBy = clonePtr(o.CompletedBy)
	c.CancelledAt = clonePtr(o.CancelledAt)
	c.CancelledBy = clonePtr(o.CancelledBy)
	c.ReturnedAt = clonePtr(o.ReturnedAt)
	c.ReturnedBy = clonePtr(o.ReturnedBy)
	c.RatingDate = clonePtr(o.RatingDate)
	c.DeletedAt = clonePtr(o.DeletedAt)
	c.Details = append([]OrderDetail(nil), o.Details...)
	return &c
}

// ReservationLapsed reports whether a banking hold is still pending past its
// expiration instant.
func (o *Order) ReservationLapsed(now time.Time) bool {
	return o.Payment == PaymentBanking &&
		o.Status == OrderStatusCreated &&
		o.ExpiresAt != nil &&
		o.ExpiresAt.Before(now)
}

func (o *Order) ProductIDs() []string {
	ids := make([]string, 0, len(o.Details))
	for _, d := range o.Details {
		ids = append(ids, d.ProductID)
	}
	return ids
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
