package types

import "time"

type PremiumAccount struct {
	UserID     int64
	ChatID     int64
	Credits    int64
	ExpiryDate *time.Time
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entitled reports whether the account grants premium access at now.
// The expiry instant itself is still valid.
func (a *PremiumAccount) Entitled(now time.Time) bool {
	if a == nil || !a.IsActive || a.ExpiryDate == nil {
		return false
	}
	return !now.After(*a.ExpiryDate)
}

type AuthorizedChat struct {
	ChatID    int64
	Title     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *AuthorizedChat) Authorized() bool {
	return c != nil && c.IsActive
}

type FreeUsageCounter struct {
	UserID           int64
	ChatID           int64
	DailySearchCount int
	LastSearchAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type FreeTierConfig struct {
	ChatID              int64
	DailyLimit          int
	SpamCooldownSeconds int
	UpdatedAt           time.Time
}

func DefaultFreeTierConfig(chatID int64) FreeTierConfig {
	return FreeTierConfig{
		ChatID:              chatID,
		DailyLimit:          DefaultDailyLimit,
		SpamCooldownSeconds: DefaultSpamCooldownSeconds,
	}
}

type UsageRecord struct {
	ID           int64
	UserID       int64
	ChatID       int64
	SearchTerm   string
	Tier         Tier
	CreditsUsed  int64
	ResultsCount int
	CreatedAt    time.Time
}
