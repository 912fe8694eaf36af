// Package policy decides whether a search request is granted, denied or throttled.
//
// Premium entitlement is checked first and short-circuits every free-tier rule.
// Without it, the free tier applies: chat authorization, then the anti-spam
// cooldown, then the daily limit. Nothing here writes; a Grant carries the
// mutation the caller must apply.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/bat-bot-search/types"
)

type Request struct {
	UserID     int64
	ChatID     int64
	SearchTerm string
	Now        time.Time
}

type PriceSource interface {
	Price(ctx context.Context) (int64, error)
}

type Evaluator struct {
	reader types.EntitlementReader
	prices PriceSource
}

func NewEvaluator(reader types.EntitlementReader, prices PriceSource) *Evaluator {
	return &Evaluator{reader: reader, prices: prices}
}

// Evaluate reads fresh snapshots and returns the decision for req.
// Errors are store failures only; policy outcomes are never errors.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	acct, err := e.reader.GetPremiumAccount(ctx, req.UserID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return Decision{}, fmt.Errorf("load premium account: %w", err)
	}
	if acct.Entitled(req.Now) {
		price, err := e.prices.Price(ctx)
		if err != nil {
			return Decision{}, fmt.Errorf("load price: %w", err)
		}
		return DecidePremium(acct, price, req), nil
	}

	chat, err := e.reader.GetAuthorizedChat(ctx, req.ChatID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return Decision{}, fmt.Errorf("load chat: %w", err)
	}
	if !chat.Authorized() {
		return deny(types.TierFree, ReasonChatNotAuthorized), nil
	}

	cfg, err := e.reader.GetFreeTierConfig(ctx, req.ChatID)
	if err != nil {
		return Decision{}, fmt.Errorf("load free tier config: %w", err)
	}
	counter, err := e.reader.GetFreeCounter(ctx, req.UserID, req.ChatID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return Decision{}, fmt.Errorf("load free counter: %w", err)
	}
	return DecideFree(chat, cfg, counter, req), nil
}

// DecidePremium assumes acct is entitled at req.Now.
func DecidePremium(acct *types.PremiumAccount, price int64, req Request) Decision {
	if acct.Credits < price {
		d := deny(types.TierPremium, ReasonInsufficientCredits)
		d.Have = acct.Credits
		d.Need = price
		return d
	}
	return Decision{
		Outcome: OutcomeGrant,
		Tier:    types.TierPremium,
		Have:    acct.Credits,
		Need:    price,
		Charge: Charge{
			Kind:   ChargeDeductCredits,
			UserID: req.UserID,
			ChatID: req.ChatID,
			Amount: price,
		},
		Record: usageRecord(req, types.TierPremium, price),
	}
}

// DecideFree applies the free-tier rules. A nil counter is a user with no free
// searches yet in this chat.
func DecideFree(chat *types.AuthorizedChat, cfg types.FreeTierConfig, counter *types.FreeUsageCounter, req Request) Decision {
	if !chat.Authorized() {
		return deny(types.TierFree, ReasonChatNotAuthorized)
	}

	count := 0
	var last *time.Time
	if counter != nil {
		count = counter.DailySearchCount
		last = counter.LastSearchAt
	}

	if last != nil && cfg.SpamCooldownSeconds > 0 {
		cooldown := time.Duration(cfg.SpamCooldownSeconds) * time.Second
		elapsed := req.Now.Sub(*last)
		if elapsed < cooldown {
			remaining := cooldown - elapsed
			if remaining > cooldown {
				remaining = cooldown
			}
			return Decision{
				Outcome:          OutcomeThrottle,
				Tier:             types.TierFree,
				RemainingSeconds: int(remaining / time.Second),
			}
		}
	}

	if count >= cfg.DailyLimit {
		d := deny(types.TierFree, ReasonDailyLimitReached)
		d.Limit = cfg.DailyLimit
		return d
	}

	return Decision{
		Outcome: OutcomeGrant,
		Tier:    types.TierFree,
		Limit:   cfg.DailyLimit,
		Charge: Charge{
			Kind:   ChargeIncrementCounter,
			UserID: req.UserID,
			ChatID: req.ChatID,
			Counter: types.CounterUpdate{
				UserID:               req.UserID,
				ChatID:               req.ChatID,
				ExpectedCount:        count,
				ExpectedLastSearchAt: last,
				NewCount:             count + 1,
				LastSearchAt:         req.Now,
			},
		},
		Record: usageRecord(req, types.TierFree, 0),
	}
}

func usageRecord(req Request, tier types.Tier, credits int64) types.UsageRecord {
	return types.UsageRecord{
		UserID:      req.UserID,
		ChatID:      req.ChatID,
		SearchTerm:  strings.TrimSpace(req.SearchTerm),
		Tier:        tier,
		CreditsUsed: credits,
		CreatedAt:   req.Now,
	}
}
