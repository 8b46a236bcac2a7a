package domain

import "time"

// Outbound topics.
const (
	TopicApprovedByEmployee = "orchestration.orders.approved_by_employee"
	TopicOrderPaid          = "orchestration.orders.paid"
	TopicRated              = "rates.rated"
	TopicCartClean          = "carts.orders.clean"
	TopicSearchIndex        = "search.order.index"
)

// Inbound topics.
const (
	TopicOrderPackaged  = "orders.packaged"
	TopicOrderCancelled = "orders.cancelled"
	TopicOrderCommented = "orders.commented"
	TopicMakePayment    = "orders.makepayment"
	TopicProductCreated = "orders.product.created"
	TopicAddressCreated = "orders.address.created"
)

type StockReservationRequested struct {
	OrderID      string        `json:"order_id"`
	OrderDetails []OrderDetail `json:"order_details"`
	BranchID     string        `json:"branch_id"`
}

// PaymentReceived carries the reservation snapshot handed to settlement.
type PaymentReceived struct {
	Order     *Order    `json:"order"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderRated struct {
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	Star      int      `json:"star"`
	Comment   string   `json:"comment,omitempty"`
	Username  string   `json:"username"`
	Images    []string `json:"images,omitempty"`
}

type CartCleanRequested struct {
	Username   string   `json:"username"`
	UserID     string   `json:"user_id"`
	ProductIDs []string `json:"product_ids"`
}

type SearchIndexRequested struct {
	ID        string   `json:"id"`
	OrderCode string   `json:"order_code"`
	UserID    string   `json:"user_id"`
	Slugs     []string `json:"slugs"`
	Phone     string   `json:"phone"`
}
