package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/fjod/loot_kingdom/internal/cache"
	"github.com/fjod/loot_kingdom/internal/domain"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo  r.RepoInterface
	cache cache.CartCache
	log   *slog.Logger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo r.RepoInterface, cartCache cache.CartCache, log *slog.Logger) *CartService {
	return &CartService{
		repo:  repo,
		cache: cartCache,
		log:   log.With("component", "cart"),
	}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "user_id", userID, "error", err)
		}

		lines, err := s.repo.GetCartLines(ctx, userID)
		if err != nil {
			return nil, err
		}
		cart = &domain.Cart{
			UserID:    userID,
			Items:     lines,
			UpdatedAt: time.Now().UTC(),
		}

		if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
			s.log.WarnContext(ctx, "cache set error", "user_id", userID, "error", errSet)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds qty to the cart line, creating it if needed. The resulting
// quantity is soft-checked against current stock; checkout checks again.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, qty int32) error {
	if !validQuantity(qty) {
		return ErrInvalidQuantity
	}

	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		var current int32
		item, err := tx.GetCartItem(ctx, userID, productID)
		switch {
		case err == nil:
			current = item.Quantity
		case !errors.Is(err, r.ErrCartItemNotFound):
			return err
		}

		total := current + qty
		if !validQuantity(total) {
			return ErrInvalidQuantity
		}
		if err := checkStock(product, total); err != nil {
			return err
		}

		_, err = tx.AddCartItem(ctx, userID, productID, qty)
		return err
	})
	if err != nil {
		return err
	}

	invalidateCart(ctx, s.cache, s.log, userID)
	return nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, qty int32) error {
	if !validQuantity(qty) {
		return ErrInvalidQuantity
	}

	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := checkStock(product, qty); err != nil {
			return err
		}
		return tx.SetCartItemQuantity(ctx, userID, productID, qty)
	})
	if err != nil {
		return err
	}

	invalidateCart(ctx, s.cache, s.log, userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	if err := s.repo.RemoveCartItem(ctx, userID, productID); err != nil {
		return err
	}

	invalidateCart(ctx, s.cache, s.log, userID)
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return err
	}

	invalidateCart(ctx, s.cache, s.log, userID)
	return nil
}

func validQuantity(qty int32) bool {
	return qty >= 1 && qty <= domain.MaxCartQuantity
}

func checkStock(p *domain.Product, qty int32) error {
	if qty > p.Stock {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.Stock,
		}
	}
	return nil
}

// invalidateCart is best effort: a stale entry expires with its TTL.
func invalidateCart(ctx context.Context, c cache.CartCache, log *slog.Logger, userID int64) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.Delete(ctx, userID); err != nil {
		log.WarnContext(ctx, "cache invalidate error", "user_id", userID, "error", err)
	}
}
