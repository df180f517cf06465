package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
)

const couponColumns = `id, code, discount_percent, loot_coins_cost, user_id, is_active, used_at, created_at`

func scanCoupon(row interface{ Scan(...any) error }) (*domain.Coupon, error) {
	var (
		c      domain.Coupon
		userID sql.NullInt64
		usedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountPercent,
		&c.LootCoinsCost,
		&userID,
		&c.IsActive,
		&usedAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		c.UserID = &userID.Int64
	}
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}
	return &c, nil
}

func (r *Repository) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO coupons (id, code, discount_percent, loot_coins_cost, user_id, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var userID sql.NullInt64
	if c.UserID != nil {
		userID = sql.NullInt64{Int64: *c.UserID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		c.ID,
		c.Code,
		c.DiscountPercent,
		c.LootCoinsCost,
		userID,
		c.IsActive,
		c.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCouponCode
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.q.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon by code: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCouponsByUser(ctx context.Context, userID int64) ([]*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query coupons by user id: %w", err)
	}
	defer rows.Close()

	coupons := make([]*domain.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return coupons, nil
}

// DeactivateCoupon flips an active coupon to used. It returns false when the
// code is unknown or was already used.
func (r *Repository) DeactivateCoupon(ctx context.Context, code string) (bool, error) {
	query := `UPDATE coupons SET is_active = $1, used_at = $2 WHERE code = $3 AND is_active = $4`

	res, err := r.q.ExecContext(ctx, query, false, time.Now().UTC(), code, true)
	if err != nil {
		return false, fmt.Errorf("deactivate coupon: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate coupon rows affected: %w", err)
	}
	return n == 1, nil
}
