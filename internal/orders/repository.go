package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

var _ Store = (*OrderRepository)(nil)

const orderColumns = `id, order_code, user_id, address_id, branch_id, status, payment, payment_status,
	expiration_timestamp, approved_date, approved_by, packaged_date, packaged_by, started_date,
	started_by, received_date, completed_date, completed_by, cancelled_date, cancelled_by,
	returned_date, returned_by, rating_date, created_at, updated_at, version`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.Version = 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_code, user_id, address_id, branch_id, status, payment,
			payment_status, expiration_timestamp, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, order.ID, order.OrderCode, order.UserID, order.AddressID, nullString(order.BranchID),
		order.Status, order.Payment, nullPaymentStatus(order.PaymentStatus), nullTime(order.ExpiresAt),
		order.CreatedAt, order.UpdatedAt, order.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert order %s: %w", order.OrderCode, ErrDuplicateCode)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, detail := range order.Details {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_details (order_id, product_id, quantity, position)
			VALUES ($1, $2, $3, $4)
		`, order.ID, detail.ProductID, detail.Quantity, i)
		if err != nil {
			return fmt.Errorf("insert order detail %s: %w", detail.ProductID, err)
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.Find(ctx, Filter{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return orders[0], nil
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET
			address_id = $3, branch_id = $4, status = $5, payment_status = $6,
			approved_date = $7, approved_by = $8, packaged_date = $9, packaged_by = $10,
			started_date = $11, started_by = $12, received_date = $13, completed_date = $14,
			completed_by = $15, cancelled_date = $16, cancelled_by = $17, returned_date = $18,
			returned_by = $19, rating_date = $20, updated_at = $21, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`, order.ID, order.Version, order.AddressID, nullString(order.BranchID), order.Status,
		nullPaymentStatus(order.PaymentStatus),
		nullTime(order.ApprovedAt), nullActor(order.ApprovedBy),
		nullTime(order.PackagedAt), nullActor(order.PackagedBy),
		nullTime(order.StartedAt), nullActor(order.StartedBy),
		nullTime(order.ReceivedAt), nullTime(order.CompletedAt), nullActor(order.CompletedBy),
		nullTime(order.CancelledAt), nullActor(order.CancelledBy),
		nullTime(order.ReturnedAt), nullActor(order.ReturnedBy),
		nullTime(order.RatingDate), order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND deleted_at IS NULL)
		`, order.ID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	order.Version++
	return nil
}

func (r *OrderRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET deleted_at = $2, updated_at = $2, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *OrderRepository) Find(ctx context.Context, filter Filter) ([]*domain.Order, error) {
	query, args := buildFindQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	orders := make([]*domain.Order, 0)

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Details = []domain.OrderDetail{}
		orderMap[order.ID] = order
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	detailRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity
		FROM order_details
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find order details: %w", err)
	}
	defer func() { _ = detailRows.Close() }()

	for detailRows.Next() {
		var orderID string
		var detail domain.OrderDetail
		if err := detailRows.Scan(&orderID, &detail.ProductID, &detail.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Details = append(order.Details, detail)
	}

	if err := detailRows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func buildFindQuery(filter Filter) (string, []any) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.IDs) > 0 {
		conds = append(conds, "id = ANY("+arg(pq.Array(filter.IDs))+")")
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if filter.CompletedBy != "" {
		conds = append(conds, "completed_by = "+arg(filter.CompletedBy))
	}
	if filter.CancelledBy != "" {
		conds = append(conds, "cancelled_by = "+arg(filter.CancelledBy))
	}
	if filter.Undelivered {
		conds = append(conds, "completed_by IS NULL")
	}

	var scoped []string
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		scoped = append(scoped, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if filter.BranchID != "" {
		scoped = append(scoped, "branch_id = "+arg(filter.BranchID))
	}
	switch {
	case filter.OrCreated && len(scoped) > 0:
		conds = append(conds, "(("+strings.Join(scoped, " AND ")+") OR status = "+arg(string(domain.OrderStatusCreated))+")")
	case len(scoped) > 0:
		conds = append(conds, scoped...)
	}

	query := "SELECT " + orderColumns + " FROM orders WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY " + sortColumn(filter.SortBy) + " DESC NULLS LAST, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}
	return query, args
}

func sortColumn(field SortField) string {
	switch field {
	case SortPackagedAt, SortStartedAt, SortCompletedAt, SortCancelledAt:
		return string(field)
	default:
		return string(SortCreatedAt)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var branchID, paymentStatus sql.NullString
	var approvedBy, packagedBy, startedBy, completedBy, cancelledBy, returnedBy sql.NullString
	var expiresAt, approvedAt, packagedAt, startedAt, receivedAt sql.NullTime
	var completedAt, cancelledAt, returnedAt, ratingDate sql.NullTime

	err := row.Scan(&o.ID, &o.OrderCode, &o.UserID, &o.AddressID, &branchID, &o.Status, &o.Payment,
		&paymentStatus, &expiresAt, &approvedAt, &approvedBy, &packagedAt, &packagedBy, &startedAt,
		&startedBy, &receivedAt, &completedAt, &completedBy, &cancelledAt, &cancelledBy,
		&returnedAt, &returnedBy, &ratingDate, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.BranchID = branchID.String
	if paymentStatus.Valid {
		ps := domain.PaymentStatus(paymentStatus.String)
		o.PaymentStatus = &ps
	}
	o.ExpiresAt = timePtr(expiresAt)
	o.ApprovedAt, o.ApprovedBy = timePtr(approvedAt), actorPtr(approvedBy)
	o.PackagedAt, o.PackagedBy = timePtr(packagedAt), actorPtr(packagedBy)
	o.StartedAt, o.StartedBy = timePtr(startedAt), actorPtr(startedBy)
	o.ReceivedAt = timePtr(receivedAt)
	o.CompletedAt, o.CompletedBy = timePtr(completedAt), actorPtr(completedBy)
	o.CancelledAt, o.CancelledBy = timePtr(cancelledAt), actorPtr(cancelledBy)
	o.ReturnedAt, o.ReturnedBy = timePtr(returnedAt), actorPtr(returnedBy)
	o.RatingDate = timePtr(ratingDate)

	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullPaymentStatus(ps *domain.PaymentStatus) sql.NullString {
	if ps == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*ps), Valid: true}
}

func nullActor(a *domain.Actor) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.ID, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func actorPtr(n sql.NullString) *domain.Actor {
	if !n.Valid {
		return nil
	}
	a := domain.ParseActor(n.String)
	return &a
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
