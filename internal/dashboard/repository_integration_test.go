//go:build integration

package dashboard

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/testutil"
)

func seed(ctx context.Context, t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO products (id, name, price, slug) VALUES ('p-1', 'Phone', 100, 'phone'), ('p-2', 'Case', 10, 'case')`,
		`INSERT INTO address (id, phone, street, ward, district, city) VALUES ('a-1', '0868738097', '12 Le Loi', 'Ben Nghe', '1', 'HCM')`,
		`INSERT INTO orders (id, order_code, user_id, address_id, branch_id, status, payment, created_at) VALUES
			('o-1', 'C1', 'u-1', 'a-1', 'b-1', 'Completed', 'Cash', '2026-03-01 09:00:00+00'),
			('o-2', 'C2', 'u-1', 'a-1', 'b-1', 'Approved', 'Cash', '2026-03-01 18:00:00+00'),
			('o-3', 'C3', 'u-2', 'a-1', 'b-2', 'Created', 'Cash', '2026-03-02 10:00:00+00'),
			('o-4', 'C4', 'u-2', 'a-1', 'b-2', 'Created', 'Cash', '2026-04-01 10:00:00+00')`,
		`INSERT INTO order_details (order_id, product_id, quantity, position) VALUES
			('o-1', 'p-1', 1, 0), ('o-1', 'p-2', 2, 1),
			('o-2', 'p-2', 5, 0),
			('o-3', 'p-1', 3, 0),
			('o-4', 'p-1', 1, 0)`,
	}
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestRepositoryReports(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := testutil.Postgres(ctx, t)
	seed(ctx, t, db)
	repo := NewRepository(db)

	march := Range{
		Start:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC),
		Branch: AllBranches,
	}

	perDay, err := repo.OrdersPerDay(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, []Point{{"2026-03-01", 2}, {"2026-03-02", 1}}, perDay)

	revenue, err := repo.RevenuePerDay(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, []Point{{"2026-03-01", 170}, {"2026-03-02", 300}}, revenue)

	hot, err := repo.HotSelling(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, []Point{{"Case", 7}, {"Phone", 4}}, hot)

	branch := march
	branch.Branch = "b-2"
	perDay, err = repo.OrdersPerDay(ctx, branch)
	require.NoError(t, err)
	assert.Equal(t, []Point{{"2026-03-02", 1}}, perDay)

	byPhone, err := repo.OrdersByPhone(ctx, "0868738097")
	require.NoError(t, err)
	require.Len(t, byPhone, 4)
	assert.Equal(t, "o-4", byPhone[0].ID)
	assert.Equal(t, "12 Le Loi, Ben Nghe, 1, HCM", byPhone[0].Address)
	assert.Equal(t, int64(120), byPhone[3].Total)
}
