package settings

// DB config keys for runtime quota overrides.
const (
	// FreeTierDailyLimitKey overrides the free-tier daily request ceiling.
	FreeTierDailyLimitKey = "FREE_TIER_DAILY_LIMIT"
	// PremiumTierDailyLimitKey overrides the premium-tier daily request ceiling.
	PremiumTierDailyLimitKey = "PREMIUM_TIER_DAILY_LIMIT"
)
