package access

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
	"github.com/BatmanBruc/bat-bot-search/internal/pricing"
	"github.com/BatmanBruc/bat-bot-search/types"
)

type PremiumStatus struct {
	Account           types.PremiumAccount
	Valid             bool
	DaysRemaining     int
	Price             int64
	SearchesAvailable int64
}

type FreeStatus struct {
	ChatID     int64
	Authorized bool
	// Config and the counter fields are only filled for authorized chats.
	Config          types.FreeTierConfig
	Count           int
	Remaining       int
	CooldownSeconds int
	LastSearchAt    *time.Time
}

func (s *Service) PremiumStatus(ctx context.Context, userID int64) (PremiumStatus, error) {
	acct, err := s.store.GetPremiumAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return PremiumStatus{}, apperrors.New(apperrors.CodeNotFound, "premium account not found")
		}
		return PremiumStatus{}, apperrors.Wrap(apperrors.CodeDependency, err, "load premium account")
	}
	price, err := s.Price(ctx)
	if err != nil {
		return PremiumStatus{}, err
	}

	now := s.now()
	st := PremiumStatus{
		Account:           *acct,
		Valid:             acct.Entitled(now),
		Price:             price,
		SearchesAvailable: pricing.SearchesAvailable(acct.Credits, price),
	}
	if acct.ExpiryDate != nil && acct.ExpiryDate.After(now) {
		st.DaysRemaining = int(acct.ExpiryDate.Sub(now) / (24 * time.Hour))
	}
	return st, nil
}

func (s *Service) FreeStatus(ctx context.Context, userID, chatID int64) (FreeStatus, error) {
	st := FreeStatus{ChatID: chatID}

	chat, err := s.store.GetAuthorizedChat(ctx, chatID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return st, apperrors.Wrap(apperrors.CodeDependency, err, "load chat")
	}
	st.Authorized = chat.Authorized()
	if !st.Authorized {
		return st, nil
	}

	cfg, err := s.store.GetFreeTierConfig(ctx, chatID)
	if err != nil {
		return st, apperrors.Wrap(apperrors.CodeDependency, err, "load free tier config")
	}
	st.Config = cfg

	counter, err := s.store.GetFreeCounter(ctx, userID, chatID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return st, apperrors.Wrap(apperrors.CodeDependency, err, "load free counter")
	}
	if counter != nil {
		st.Count = counter.DailySearchCount
		st.LastSearchAt = counter.LastSearchAt
	}
	if st.Count < cfg.DailyLimit {
		st.Remaining = cfg.DailyLimit - st.Count
	}
	if st.LastSearchAt != nil && cfg.SpamCooldownSeconds > 0 {
		cooldown := time.Duration(cfg.SpamCooldownSeconds) * time.Second
		if elapsed := s.now().Sub(*st.LastSearchAt); elapsed < cooldown {
			left := cooldown - elapsed
			if left > cooldown {
				left = cooldown
			}
			st.CooldownSeconds = int(left / time.Second)
		}
	}
	return st, nil
}
