package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
)

// GetCartLines joins every cart item with the current product price and stock.
func (r *Repository) GetCartLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	query := `SELECT ci.product_id, p.name, ci.quantity, p.price, p.stock
	          FROM cart_items ci
	          JOIN products p ON p.id = ci.product_id
	          WHERE ci.user_id = $1
	          ORDER BY ci.id`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Stock); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (r *Repository) GetCartItem(ctx context.Context, userID, productID int64) (*domain.CartItem, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at
	          FROM cart_items WHERE user_id = $1 AND product_id = $2`

	var item domain.CartItem
	err := r.q.QueryRowContext(ctx, query, userID, productID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return &item, nil
}

// AddCartItem inserts the line or adds qty to an existing one and returns
// the resulting quantity.
func (r *Repository) AddCartItem(ctx context.Context, userID, productID int64, qty int32) (int32, error) {
	query := `INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          ON CONFLICT (user_id, product_id)
	          DO UPDATE SET quantity = cart_items.quantity + excluded.quantity, updated_at = excluded.updated_at
	          RETURNING quantity`

	var total int32
	err := r.q.QueryRowContext(ctx, query, userID, productID, qty, time.Now().UTC()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("upsert cart item: %w", err)
	}
	return total, nil
}

func (r *Repository) SetCartItemQuantity(ctx context.Context, userID, productID int64, qty int32) error {
	query := `UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE user_id = $3 AND product_id = $4`

	res, err := r.q.ExecContext(ctx, query, qty, time.Now().UTC(), userID, productID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return expectOneRow(res, ErrCartItemNotFound)
}

func (r *Repository) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return expectOneRow(res, ErrCartItemNotFound)
}

func (r *Repository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
