package service

import (
	"errors"
	"fmt"

	r "github.com/fjod/loot_kingdom/internal/repository"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient loot coins")
	ErrInvalidReward       = errors.New("unknown reward")
	ErrInvalidCoupon       = errors.New("coupon is not valid")
	ErrIllegalTransition   = errors.New("illegal transition of order status")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 99")
	ErrInvalidProduct      = errors.New("invalid product update")

	ErrOrderNotFound       = r.ErrOrderNotFound
	ErrProductNotFound     = r.ErrProductNotFound
	ErrUserNotFound        = r.ErrUserNotFound
	ErrCartItemNotFound    = r.ErrCartItemNotFound
	ErrDuplicateCouponCode = r.ErrDuplicateCouponCode
)

type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient loot coins: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
