package repository

import (
	"errors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrCartItemNotFound      = errors.New("cart item not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrCouponNotFound        = errors.New("coupon not found")
	ErrOutboxEventNotFound   = errors.New("outbox event not found")
	ErrDuplicateCouponCode   = errors.New("coupon code already exists")
	ErrDuplicateEmail        = errors.New("user with this email already exists")
	ErrStockConflict         = errors.New("not enough stock to decrement")
	ErrInsufficientLootCoins = errors.New("not enough loot coins to debit")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
