package orders

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

func testOrder(id string, status domain.OrderStatus, branch string) *domain.Order {
	return &domain.Order{
		ID:        id,
		OrderCode: "CODE-" + id,
		UserID:    customerID,
		AddressID: addressID,
		BranchID:  branch,
		Status:    status,
		Payment:   domain.PaymentCash,
		Details:   []domain.OrderDetail{{ProductID: "p-1", Quantity: 1}},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFilterMatch(t *testing.T) {
	shipperActor, err := domain.Human(shipper)
	require.NoError(t, err)

	delivered := testOrder("delivered", domain.OrderStatusStarted, branchA)
	delivered.CompletedBy = &shipperActor

	tests := []struct {
		name   string
		filter Filter
		order  *domain.Order
		want   bool
	}{
		{"empty filter", Filter{}, testOrder("o", domain.OrderStatusApproved, branchA), true},
		{"status mismatch", Filter{Statuses: []domain.OrderStatus{domain.OrderStatusPackaged}}, testOrder("o", domain.OrderStatusApproved, branchA), false},
		{"branch mismatch", Filter{BranchID: branchB}, testOrder("o", domain.OrderStatusApproved, branchA), false},
		{"or created outside branch", Filter{BranchID: branchB, OrCreated: true}, testOrder("o", domain.OrderStatusCreated, ""), true},
		{"or created still scopes others", Filter{BranchID: branchB, OrCreated: true}, testOrder("o", domain.OrderStatusApproved, branchA), false},
		{"undelivered excludes delivered", Filter{Undelivered: true}, delivered, false},
		{"completed by", Filter{CompletedBy: shipper}, delivered, true},
		{"completed by other", Filter{CompletedBy: "0903000003"}, delivered, false},
		{"ids", Filter{IDs: []string{"a", "b"}}, testOrder("c", domain.OrderStatusCreated, ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.order))
		})
	}
}

func TestFilterLessNullsLast(t *testing.T) {
	early := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	a := testOrder("a", domain.OrderStatusPackaged, branchA)
	a.PackagedAt = &early
	b := testOrder("b", domain.OrderStatusPackaged, branchA)
	b.PackagedAt = &late
	c := testOrder("c", domain.OrderStatusPackaged, branchA)
	d := testOrder("d", domain.OrderStatusPackaged, branchA)
	d.PackagedAt = &late

	f := Filter{SortBy: SortPackagedAt}
	assert.True(t, f.Less(b, a))
	assert.True(t, f.Less(a, c))
	assert.False(t, f.Less(c, a))
	assert.True(t, f.Less(b, d), "ties break on id")
}

func TestBuildFindQuery(t *testing.T) {
	query, args := buildFindQuery(Filter{
		Statuses:  []domain.OrderStatus{domain.OrderStatusApproved},
		BranchID:  branchA,
		OrCreated: true,
		SortBy:    SortPackagedAt,
		Limit:     6,
		Offset:    12,
	})

	assert.Contains(t, query, "deleted_at IS NULL")
	assert.Contains(t, query, "((status = ANY($1) AND branch_id = $2) OR status = $3)")
	assert.Contains(t, query, "ORDER BY packaged_date DESC NULLS LAST, id LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{pq.Array([]string{"Approved"}), branchA, "Created", 6, 12}, args)

	query, args = buildFindQuery(Filter{CompletedBy: shipper, Undelivered: true})
	assert.Contains(t, query, "completed_by = $1 AND completed_by IS NULL")
	assert.Contains(t, query, "ORDER BY created_at DESC NULLS LAST, id")
	assert.NotContains(t, query, "LIMIT")
	assert.Equal(t, []any{shipper}, args)
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	order := testOrder("o-1", domain.OrderStatusCreated, "")
	require.NoError(t, store.Create(ctx, order))
	assert.Equal(t, int64(1), order.Version)

	first, err := store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	second, err := store.GetByID(ctx, "o-1")
	require.NoError(t, err)

	first.Status = domain.OrderStatusApproved
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = domain.OrderStatusCancelled
	require.ErrorIs(t, store.Save(ctx, second), ErrConflict)

	stored, err := store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusApproved, stored.Status)

	// Callers cannot mutate stored state through returned pointers.
	stored.Status = domain.OrderStatusReturned
	again, err := store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusApproved, again.Status)
}

func TestMemoryStoreDuplicateCodeAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, testOrder("o-1", domain.OrderStatusCreated, "")))

	dup := testOrder("o-2", domain.OrderStatusCreated, "")
	dup.OrderCode = "CODE-o-1"
	require.ErrorIs(t, store.Create(ctx, dup), ErrDuplicateCode)

	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SoftDelete(ctx, "o-1", at))
	require.ErrorIs(t, store.SoftDelete(ctx, "o-1", at), ErrNotFound)

	got, err := store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	found, err := store.Find(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, found)

	require.ErrorIs(t, store.Save(ctx, testOrder("o-1", domain.OrderStatusApproved, "")), ErrNotFound)
}
