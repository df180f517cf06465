package domain

// RewardTier is a LootCoin price for a percentage discount coupon.
type RewardTier struct {
	ID      string `json:"id"`
	Percent int32  `json:"percent"`
	Cost    int64  `json:"cost"`
}

var RewardTiers = []RewardTier{
	{ID: "discount-10", Percent: 10, Cost: 1000},
	{ID: "discount-20", Percent: 20, Cost: 2500},
	{ID: "discount-50", Percent: 50, Cost: 10000},
}

func FindRewardTier(id string) (RewardTier, bool) {
	for _, tier := range RewardTiers {
		if tier.ID == id {
			return tier, true
		}
	}
	return RewardTier{}, false
}
