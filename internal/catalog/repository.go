// Package catalog keeps the local replica of products and addresses that
// orders reference.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

var ErrUnknownAddress = errors.New("unknown address")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UpsertProduct(ctx context.Context, p domain.Product) error {
	var sale sql.NullInt64
	if p.Sale != nil {
		sale = sql.NullInt64{Int64: *p.Sale, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, slug, image, sale)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, slug = EXCLUDED.slug,
			image = EXCLUDED.image, sale = EXCLUDED.sale, updated_at = NOW()
	`, p.ID, p.Name, p.Price, p.Slug, p.Image, sale)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) UpsertAddress(ctx context.Context, a domain.Address) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO address (id, phone, name, street, ward, district, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			phone = EXCLUDED.phone, name = EXCLUDED.name, street = EXCLUDED.street,
			ward = EXCLUDED.ward, district = EXCLUDED.district, city = EXCLUDED.city,
			updated_at = NOW()
	`, a.ID, a.Phone, a.Name, a.Street, a.Ward, a.District, a.City)
	if err != nil {
		return fmt.Errorf("upsert address %s: %w", a.ID, err)
	}
	return nil
}

// ProductSlugs returns the slugs of the known products among productIDs, in
// the order the ids were given, with hyphens turned into spaces so the search
// index receives plain words. Unknown ids are skipped.
func (r *Repository) ProductSlugs(ctx context.Context, productIDs []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT replace(p.slug, '-', ' ')
		FROM unnest($1::text[]) WITH ORDINALITY AS wanted(id, n)
		JOIN products p ON p.id = wanted.id
		ORDER BY wanted.n
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query product slugs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slugs := make([]string, 0, len(productIDs))
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slugs, nil
}

func (r *Repository) AddressPhone(ctx context.Context, addressID string) (string, error) {
	var phone string
	err := r.db.QueryRowContext(ctx, `SELECT phone FROM address WHERE id = $1`, addressID).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownAddress, addressID)
	}
	if err != nil {
		return "", fmt.Errorf("query address phone: %w", err)
	}
	return phone, nil
}
