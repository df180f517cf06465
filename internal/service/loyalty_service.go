package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/metrics"
	r "github.com/fjod/loot_kingdom/internal/repository"
	"github.com/google/uuid"
)

const (
	msgCouponNotFound   = "coupon not found"
	msgCouponUsed       = "coupon already used"
	msgCouponOtherOwner = "coupon belongs to another user"
)

type RedeemResult struct {
	Coupon  *domain.Coupon
	Balance int64
}

type CouponSummary struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int32     `json:"discount_percent"`
}

type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Error  string         `json:"error,omitempty"`
	Coupon *CouponSummary `json:"coupon,omitempty"`
}

type LoyaltyService struct {
	repo    r.RepoInterface
	metrics *metrics.Metrics
	log     *slog.Logger
	newCode func(percent int32) (string, error)
}

func NewLoyaltyService(repo r.RepoInterface, m *metrics.Metrics, log *slog.Logger) *LoyaltyService {
	return &LoyaltyService{
		repo:    repo,
		metrics: m,
		log:     log.With("component", "loyalty"),
		newCode: domain.GenerateCouponCode,
	}
}

func (s *LoyaltyService) RewardOptions() []domain.RewardTier {
	return domain.RewardTiers
}

// Redeem trades LootCoins for a discount coupon. The debit, the coupon and
// its outbox event commit together; a code collision rolls the debit back.
func (s *LoyaltyService) Redeem(ctx context.Context, userID int64, rewardID string) (*RedeemResult, error) {
	tier, ok := domain.FindRewardTier(rewardID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReward, rewardID)
	}

	code, err := s.newCode(tier.Percent)
	if err != nil {
		return nil, fmt.Errorf("generate coupon code: %w", err)
	}

	result := &RedeemResult{}
	err = s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		if err := tx.DebitLootCoins(ctx, userID, tier.Cost); err != nil {
			if !errors.Is(err, r.ErrInsufficientLootCoins) {
				return err
			}
			user, uErr := tx.GetUser(ctx, userID)
			if uErr != nil {
				return uErr
			}
			return &InsufficientBalanceError{Balance: user.LootCoins, Required: tier.Cost}
		}

		owner := userID
		coupon := &domain.Coupon{
			ID:              uuid.New(),
			Code:            code,
			DiscountPercent: tier.Percent,
			LootCoinsCost:   tier.Cost,
			UserID:          &owner,
			IsActive:        true,
			CreatedAt:       time.Now().UTC(),
		}
		if err := tx.CreateCoupon(ctx, coupon); err != nil {
			return err
		}

		event := domain.CouponRedeemedEvent{
			CouponID:        coupon.ID,
			Code:            coupon.Code,
			UserID:          userID,
			RewardID:        tier.ID,
			DiscountPercent: tier.Percent,
			Cost:            tier.Cost,
			RedeemedAt:      coupon.CreatedAt,
		}
		if err := tx.InsertOutboxEvent(ctx, coupon.ID.String(), domain.EventCouponRedeemed, event); err != nil {
			return err
		}

		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		result.Coupon = coupon
		result.Balance = user.LootCoins
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redeem %s: %w", rewardID, err)
	}

	s.metrics.CouponsRedeemed.WithLabelValues(tier.ID).Inc()
	s.log.InfoContext(ctx, "reward redeemed", "user_id", userID, "reward_id", tier.ID, "coupon_id", result.Coupon.ID, "balance", result.Balance)
	return result, nil
}

// Validate is a pure read. A nil caller skips the owner check.
func (s *LoyaltyService) Validate(ctx context.Context, code string, userID *int64) (*ValidationResult, error) {
	coupon, err := s.repo.GetCouponByCode(ctx, domain.NormalizeCouponCode(code))
	if errors.Is(err, r.ErrCouponNotFound) {
		return &ValidationResult{Error: msgCouponNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	return validateCoupon(coupon, userID), nil
}

// MarkAsUsed deactivates the coupon exactly once. Callers applying a
// discount should use ConsumeInTx on the purchase transaction instead.
func (s *LoyaltyService) MarkAsUsed(ctx context.Context, code string) error {
	ok, err := s.repo.DeactivateCoupon(ctx, domain.NormalizeCouponCode(code))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidCoupon, msgCouponUsed)
	}
	s.metrics.CouponsConsumed.Inc()
	return nil
}

// ConsumeInTx validates and deactivates the coupon on tx, which must be the
// transaction of the purchase the discount is applied to. Two purchases
// racing for the same code cannot both succeed.
func (s *LoyaltyService) ConsumeInTx(ctx context.Context, tx r.RepoInterface, code string, userID int64) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	coupon, err := tx.GetCouponByCode(ctx, code)
	if errors.Is(err, r.ErrCouponNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, msgCouponNotFound)
	}
	if err != nil {
		return nil, err
	}

	if res := validateCoupon(coupon, &userID); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, res.Error)
	}

	ok, err := tx.DeactivateCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, msgCouponUsed)
	}

	s.metrics.CouponsConsumed.Inc()
	now := time.Now().UTC()
	coupon.IsActive = false
	coupon.UsedAt = &now
	return coupon, nil
}

func (s *LoyaltyService) Balance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.LootCoins, nil
}

func (s *LoyaltyService) ListCoupons(ctx context.Context, userID int64) ([]*domain.Coupon, error) {
	return s.repo.ListCouponsByUser(ctx, userID)
}

func validateCoupon(c *domain.Coupon, userID *int64) *ValidationResult {
	if !c.IsActive {
		return &ValidationResult{Error: msgCouponUsed}
	}
	if userID != nil && !c.OwnedBy(*userID) {
		return &ValidationResult{Error: msgCouponOtherOwner}
	}
	return &ValidationResult{
		Valid: true,
		Coupon: &CouponSummary{
			ID:              c.ID,
			Code:            c.Code,
			DiscountPercent: c.DiscountPercent,
		},
	}
}
