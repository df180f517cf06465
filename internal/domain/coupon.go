package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// codeAlphabet skips 0/O and 1/I so codes survive being read aloud.
const (
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeSuffixLength = 8
)

type Coupon struct {
	ID              uuid.UUID
	Code            string
	DiscountPercent int32
	LootCoinsCost   int64
	UserID          *int64 // nil means the coupon is not scoped to a user
	IsActive        bool
	UsedAt          *time.Time
	CreatedAt       time.Time
}

func (c *Coupon) OwnedBy(userID int64) bool {
	return c.UserID == nil || *c.UserID == userID
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCouponCode returns LOOT<percent>-<random suffix>.
func GenerateCouponCode(percent int32) (string, error) {
	buf := make([]byte, codeSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	suffix := make([]byte, codeSuffixLength)
	for i, b := range buf {
		suffix[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("LOOT%d-%s", percent, suffix), nil
}
