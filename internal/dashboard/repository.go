// Package dashboard serves the reporting reads over the orders tables.
package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AllBranches disables the branch predicate.
const AllBranches = "all"

const phoneOrdersLimit = 5

// Point is one labelled value of a report series.
type Point struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// Range selects orders created in [Start, End], optionally within a branch.
type Range struct {
	Start  time.Time
	End    time.Time
	Branch string
}

type PhoneOrder struct {
	ID        string    `json:"id"`
	OrderCode string    `json:"order_code"`
	Status    string    `json:"status"`
	Total     int64     `json:"total"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) OrdersPerDay(ctx context.Context, rng Range) ([]Point, error) {
	return r.series(ctx, "orders per day", `
		SELECT to_char(o.created_at, 'yyyy-mm-dd') AS label, COUNT(o.id) AS value
		FROM orders o
		WHERE o.deleted_at IS NULL
			AND o.created_at >= $1 AND o.created_at <= $2
			AND ($3 = 'all' OR o.branch_id = $3)
		GROUP BY label
		ORDER BY label ASC
	`, rng)
}

func (r *Repository) RevenuePerDay(ctx context.Context, rng Range) ([]Point, error) {
	return r.series(ctx, "revenue per day", `
		SELECT to_char(o.created_at, 'yyyy-mm-dd') AS label,
			COALESCE(SUM(d.quantity * p.price), 0) AS value
		FROM orders o
		LEFT JOIN order_details d ON d.order_id = o.id
		LEFT JOIN products p ON p.id = d.product_id
		WHERE o.deleted_at IS NULL
			AND o.created_at >= $1 AND o.created_at <= $2
			AND ($3 = 'all' OR o.branch_id = $3)
		GROUP BY label
		ORDER BY label ASC
	`, rng)
}

func (r *Repository) HotSelling(ctx context.Context, rng Range) ([]Point, error) {
	return r.series(ctx, "hot selling products", `
		SELECT p.name AS label, SUM(d.quantity) AS value
		FROM orders o
		JOIN order_details d ON d.order_id = o.id
		JOIN products p ON p.id = d.product_id
		WHERE o.deleted_at IS NULL
			AND o.created_at >= $1 AND o.created_at <= $2
			AND ($3 = 'all' OR o.branch_id = $3)
		GROUP BY p.name
		ORDER BY value DESC, label ASC
	`, rng)
}

func (r *Repository) series(ctx context.Context, name, query string, rng Range) ([]Point, error) {
	branch := rng.Branch
	if branch == "" {
		branch = AllBranches
	}

	rows, err := r.db.QueryContext(ctx, query, rng.Start, rng.End, branch)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	points := []Point{}
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Label, &p.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// OrdersByPhone returns the latest orders shipped to addresses with phone.
func (r *Repository) OrdersByPhone(ctx context.Context, phone string) ([]PhoneOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_code, o.status, COALESCE(SUM(d.quantity * p.price), 0) AS total,
			CONCAT(a.street, ', ', a.ward, ', ', a.district, ', ', a.city) AS address, o.created_at
		FROM orders o
		JOIN address a ON a.id = o.address_id
		LEFT JOIN order_details d ON d.order_id = o.id
		LEFT JOIN products p ON p.id = d.product_id
		WHERE a.phone = $1 AND o.deleted_at IS NULL
		GROUP BY o.id, o.order_code, o.status, address, o.created_at
		ORDER BY o.created_at DESC
		LIMIT $2
	`, phone, phoneOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("query orders by phone: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []PhoneOrder{}
	for rows.Next() {
		var o PhoneOrder
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.Status, &o.Total, &o.Address, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order by phone: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
