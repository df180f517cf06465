package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
)

func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleCustomer
	}
	now := time.Now().UTC()
	query := `INSERT INTO users (email, name, role, loot_coins, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := r.q.QueryRowContext(ctx, query, u.Email, u.Name, string(u.Role), u.LootCoins, now).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt = now
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT id, email, name, role, loot_coins, created_at FROM users WHERE id = $1`

	var (
		u    domain.User
		role string
	)
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&role,
		&u.LootCoins,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// CreditLootCoins is a single-statement increment, safe under concurrent confirmations.
func (r *Repository) CreditLootCoins(ctx context.Context, userID int64, amount int64) error {
	query := `UPDATE users SET loot_coins = loot_coins + $1 WHERE id = $2`

	res, err := r.q.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("credit loot coins: %w", err)
	}
	return expectOneRow(res, ErrUserNotFound)
}

// DebitLootCoins reports ErrInsufficientLootCoins instead of letting the balance go negative.
func (r *Repository) DebitLootCoins(ctx context.Context, userID int64, amount int64) error {
	query := `UPDATE users SET loot_coins = loot_coins - $1 WHERE id = $2 AND loot_coins >= $1`

	res, err := r.q.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("debit loot coins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit loot coins rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetUser(ctx, userID); err != nil {
		return err
	}
	return ErrInsufficientLootCoins
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
