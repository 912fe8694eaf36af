package types

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrCounterConflict     = errors.New("free counter changed concurrently")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// EntitlementReader is the read side used by the policy evaluator.
type EntitlementReader interface {
	GetPremiumAccount(ctx context.Context, userID int64) (*PremiumAccount, error)
	GetAuthorizedChat(ctx context.Context, chatID int64) (*AuthorizedChat, error)
	// GetFreeTierConfig creates the row with defaults when absent.
	GetFreeTierConfig(ctx context.Context, chatID int64) (FreeTierConfig, error)
	GetFreeCounter(ctx context.Context, userID, chatID int64) (*FreeUsageCounter, error)
	GetPrice(ctx context.Context) (int64, error)
}

type EntitlementStore interface {
	EntitlementReader

	UpsertPremiumAccount(ctx context.Context, acct PremiumAccount) (*PremiumAccount, error)
	DeactivatePremiumAccount(ctx context.Context, userID int64) error
	TouchPremiumChat(ctx context.Context, userID, chatID int64) error
	// DeductCredits decrements atomically and refuses to go below zero.
	DeductCredits(ctx context.Context, userID int64, amount int64) (remaining int64, err error)
	AdjustCredits(ctx context.Context, userID int64, delta int64) (balance int64, err error)

	UpsertAuthorizedChat(ctx context.Context, chat AuthorizedChat) error
	DeactivateAuthorizedChat(ctx context.Context, chatID int64) error

	UpsertFreeTierConfig(ctx context.Context, cfg FreeTierConfig) error
	SetFreeCounter(ctx context.Context, upd CounterUpdate) error
	ResetFreeCounters(ctx context.Context, chatID int64) (int64, error)
	ResetFreeCounter(ctx context.Context, userID, chatID int64) error

	SetPrice(ctx context.Context, price int64) error
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error)
	Ping(ctx context.Context) error
}

type UsageLedger interface {
	AppendUsage(ctx context.Context, rec UsageRecord) error
}

type PreferenceStore interface {
	GetLang(ctx context.Context, userID int64) (string, error)
	SetLang(ctx context.Context, userID int64, lang string) error
	ClearLang(ctx context.Context, userID int64) error
}
