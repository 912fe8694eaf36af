// Package admin holds the privileged provisioning operations. Every call
// checks the caller against the single configured administrator first and
// leaves state untouched when that check fails.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/pricing"
	"github.com/BatmanBruc/bat-bot-search/types"
)

const maxGrantDays = 3650

var ErrForbidden = apperrors.New(apperrors.CodeForbidden, "caller is not the administrator")

type Service struct {
	store   types.EntitlementStore
	prices  *pricing.Resolver
	adminID int64
	log     *logger.Logger
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Service)

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone whose calendar day bounds "today" in Stats.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store types.EntitlementStore, prices *pricing.Resolver, adminID int64, opts ...Option) *Service {
	s := &Service{
		store:   store,
		prices:  prices,
		adminID: adminID,
		log:     logger.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) IsAdmin(callerID int64) bool {
	return s.adminID != 0 && callerID == s.adminID
}

func (s *Service) authorize(ctx context.Context, callerID int64, op string) (context.Context, error) {
	ctx = s.log.WithFields(ctx, map[string]any{"admin_op": op, "caller_id": callerID})
	if !s.IsAdmin(callerID) {
		s.log.Warn(ctx, "admin operation rejected")
		return ctx, ErrForbidden
	}
	return ctx, nil
}

func storeErr(err error, what string) error {
	if errors.Is(err, types.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeNotFound, err, what+" not found")
	}
	return apperrors.Wrap(apperrors.CodeDependency, err, what)
}

// GrantPremium overwrites the balance and sets the expiry to now plus days.
func (s *Service) GrantPremium(ctx context.Context, callerID, userID, chatID, credits int64, days int) (*types.PremiumAccount, error) {
	ctx, err := s.authorize(ctx, callerID, "grant_premium")
	if err != nil {
		return nil, err
	}
	if userID == 0 || credits < 0 || days <= 0 || days > maxGrantDays {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid grant: user=%d credits=%d days=%d", userID, credits, days)
	}

	expiry := s.now().Add(time.Duration(days) * 24 * time.Hour)
	acct, err := s.store.UpsertPremiumAccount(ctx, types.PremiumAccount{
		UserID:     userID,
		ChatID:     chatID,
		Credits:    credits,
		ExpiryDate: &expiry,
		IsActive:   true,
	})
	if err != nil {
		return nil, storeErr(err, "upsert premium account")
	}
	s.log.Info(ctx, fmt.Sprintf("premium granted to %d: %d credits for %d days", userID, credits, days))
	return acct, nil
}

// RevokePremium deactivates the account and keeps its balance and expiry.
func (s *Service) RevokePremium(ctx context.Context, callerID, userID int64) error {
	ctx, err := s.authorize(ctx, callerID, "revoke_premium")
	if err != nil {
		return err
	}
	if err := s.store.DeactivatePremiumAccount(ctx, userID); err != nil {
		return storeErr(err, "premium account")
	}
	s.log.Info(ctx, fmt.Sprintf("premium revoked for %d", userID))
	return nil
}

func (s *Service) AdjustCredits(ctx context.Context, callerID, userID, delta int64) (int64, error) {
	ctx, err := s.authorize(ctx, callerID, "adjust_credits")
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return 0, apperrors.New(apperrors.CodeValidation, "delta must not be zero")
	}
	balance, err := s.store.AdjustCredits(ctx, userID, delta)
	if err != nil {
		return 0, storeErr(err, "premium account")
	}
	s.log.Info(ctx, fmt.Sprintf("credits of %d adjusted by %d, balance %d", userID, delta, balance))
	return balance, nil
}

func (s *Service) AuthorizeChat(ctx context.Context, callerID, chatID int64, title string) error {
	ctx, err := s.authorize(ctx, callerID, "authorize_chat")
	if err != nil {
		return err
	}
	if chatID == 0 {
		return apperrors.New(apperrors.CodeValidation, "chat id is required")
	}
	if err := s.store.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: chatID, Title: strings.TrimSpace(title)}); err != nil {
		return storeErr(err, "upsert authorized chat")
	}
	s.log.Info(ctx, fmt.Sprintf("chat %d authorized", chatID))
	return nil
}

func (s *Service) DeauthorizeChat(ctx context.Context, callerID, chatID int64) error {
	ctx, err := s.authorize(ctx, callerID, "deauthorize_chat")
	if err != nil {
		return err
	}
	if err := s.store.DeactivateAuthorizedChat(ctx, chatID); err != nil {
		return storeErr(err, "authorized chat")
	}
	s.log.Info(ctx, fmt.Sprintf("chat %d deauthorized", chatID))
	return nil
}

func (s *Service) SetFreeTierConfig(ctx context.Context, callerID, chatID int64, dailyLimit, cooldownSeconds int) (types.FreeTierConfig, error) {
	ctx, err := s.authorize(ctx, callerID, "set_free_tier_config")
	if err != nil {
		return types.FreeTierConfig{}, err
	}
	if chatID == 0 || dailyLimit < 0 || cooldownSeconds < 0 {
		return types.FreeTierConfig{}, apperrors.Newf(apperrors.CodeValidation, "invalid free tier config: limit=%d cooldown=%d", dailyLimit, cooldownSeconds)
	}
	cfg := types.FreeTierConfig{ChatID: chatID, DailyLimit: dailyLimit, SpamCooldownSeconds: cooldownSeconds}
	if err := s.store.UpsertFreeTierConfig(ctx, cfg); err != nil {
		return types.FreeTierConfig{}, storeErr(err, "upsert free tier config")
	}
	s.log.Info(ctx, fmt.Sprintf("free tier of chat %d set to %d/day, %ds cooldown", chatID, dailyLimit, cooldownSeconds))
	return cfg, nil
}

func (s *Service) ResetFreeCounters(ctx context.Context, callerID, chatID int64) (int64, error) {
	ctx, err := s.authorize(ctx, callerID, "reset_free_counters")
	if err != nil {
		return 0, err
	}
	n, err := s.store.ResetFreeCounters(ctx, chatID)
	if err != nil {
		return 0, storeErr(err, "reset free counters")
	}
	s.log.Info(ctx, fmt.Sprintf("%d free counters reset in chat %d", n, chatID))
	return n, nil
}

func (s *Service) ResetFreeCounter(ctx context.Context, callerID, userID, chatID int64) error {
	ctx, err := s.authorize(ctx, callerID, "reset_free_counter")
	if err != nil {
		return err
	}
	if err := s.store.ResetFreeCounter(ctx, userID, chatID); err != nil {
		return storeErr(err, "free counter")
	}
	return nil
}

func (s *Service) SetPrice(ctx context.Context, callerID, price int64) error {
	ctx, err := s.authorize(ctx, callerID, "set_price")
	if err != nil {
		return err
	}
	if price <= 0 {
		return apperrors.New(apperrors.CodeValidation, "price must be positive")
	}
	if err := s.store.SetPrice(ctx, price); err != nil {
		return storeErr(err, "set price")
	}
	s.log.Info(ctx, fmt.Sprintf("price per search set to %d", price))
	return nil
}

func (s *Service) Stats(ctx context.Context, callerID int64) (types.Stats, error) {
	ctx, err := s.authorize(ctx, callerID, "stats")
	if err != nil {
		return types.Stats{}, err
	}
	start, end := types.DayBounds(s.now(), s.loc)
	st, err := s.store.Stats(ctx, start, end)
	if err != nil {
		return types.Stats{}, storeErr(err, "stats")
	}
	price, err := s.prices.Price(ctx)
	if err != nil {
		return types.Stats{}, storeErr(err, "load price")
	}
	st.PricePerSearch = price
	return st, nil
}
