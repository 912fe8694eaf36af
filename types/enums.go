package types

type Tier string

const (
	TierPremium Tier = "PREMIUM"
	TierFree    Tier = "FREE"
)

func (t Tier) Valid() bool {
	return t == TierPremium || t == TierFree
}

const (
	DefaultDailyLimit          = 3
	DefaultSpamCooldownSeconds = 60
	DefaultPricePerSearch      = 5
)

const SettingPricePerSearch = "price_per_search"
