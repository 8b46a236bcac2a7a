package orders

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

// Store persists orders. GetByID returns nil, nil for a missing or deleted
// order. Save is a compare-and-swap on Version and bumps it on success.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Find(ctx context.Context, filter Filter) ([]*domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortPackagedAt  SortField = "packaged_date"
	SortStartedAt   SortField = "started_date"
	SortCompletedAt SortField = "completed_date"
	SortCancelledAt SortField = "cancelled_date"
)

// Filter is the predicate shared by every list read. Zero fields do not
// constrain. When OrCreated is set, orders in status Created match
// regardless of the status and branch constraints.
type Filter struct {
	IDs         []string
	UserID      string
	Statuses    []domain.OrderStatus
	BranchID    string
	OrCreated   bool
	CompletedBy string
	CancelledBy string
	Undelivered bool

	SortBy SortField
	Limit  int
	Offset int
}

func (f Filter) Match(o *domain.Order) bool {
	if o.DeletedAt != nil {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, o.ID) {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.CompletedBy != "" && (o.CompletedBy == nil || o.CompletedBy.ID != f.CompletedBy) {
		return false
	}
	if f.CancelledBy != "" && (o.CancelledBy == nil || o.CancelledBy.ID != f.CancelledBy) {
		return false
	}
	if f.Undelivered && o.CompletedBy != nil {
		return false
	}

	scoped := (len(f.Statuses) == 0 || slices.Contains(f.Statuses, o.Status)) &&
		(f.BranchID == "" || o.BranchID == f.BranchID)
	if f.OrCreated {
		return scoped || o.Status == domain.OrderStatusCreated
	}
	return scoped
}

// Less orders a before b: sort field descending with nulls last, then id.
func (f Filter) Less(a, b *domain.Order) bool {
	ta, tb := f.sortKey(a), f.sortKey(b)
	switch {
	case ta == nil && tb == nil:
	case ta == nil:
		return false
	case tb == nil:
		return true
	case !ta.Equal(*tb):
		return ta.After(*tb)
	}
	return strings.Compare(a.ID, b.ID) < 0
}

func (f Filter) sortKey(o *domain.Order) *time.Time {
	switch f.SortBy {
	case SortPackagedAt:
		return o.PackagedAt
	case SortStartedAt:
		return o.StartedAt
	case SortCompletedAt:
		return o.CompletedAt
	case SortCancelledAt:
		return o.CancelledAt
	default:
		return &o.CreatedAt
	}
}
