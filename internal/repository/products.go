package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
)

const productColumns = `id, name, description, image_url, price, stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.ImageURL,
		&p.Price,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	query := `INSERT INTO products (name, description, image_url, price, stock, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`

	err := r.q.QueryRowContext(ctx, query,
		p.Name,
		p.Description,
		p.ImageURL,
		p.Price,
		p.Stock,
		now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// DecrementStock never lets stock go negative: zero affected rows means the
// product is missing or has fewer than qty units left.
func (r *Repository) DecrementStock(ctx context.Context, productID int64, qty int32) error {
	query := `UPDATE products SET stock = stock - $1, updated_at = $2
	          WHERE id = $3 AND stock >= $1`

	res, err := r.q.ExecContext(ctx, query, qty, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return expectOneRow(res, ErrStockConflict)
}

func (r *Repository) SetStock(ctx context.Context, productID int64, stock int32) error {
	return r.updateProduct(ctx, `UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3`, stock, productID)
}

func (r *Repository) UpdateProductPrice(ctx context.Context, productID int64, price int64) error {
	return r.updateProduct(ctx, `UPDATE products SET price = $1, updated_at = $2 WHERE id = $3`, price, productID)
}

func (r *Repository) updateProduct(ctx context.Context, query string, value any, productID int64) error {
	res, err := r.q.ExecContext(ctx, query, value, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOneRow(res, ErrProductNotFound)
}
