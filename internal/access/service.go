// Package access runs search requests through the policy evaluator and applies
// the resulting charge against the entitlement store.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/metrics"
	"github.com/BatmanBruc/bat-bot-search/internal/policy"
	"github.com/BatmanBruc/bat-bot-search/internal/pricing"
	"github.com/BatmanBruc/bat-bot-search/types"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 10 * time.Millisecond
)

type Service struct {
	store     types.EntitlementStore
	ledger    types.UsageLedger
	prices    *pricing.Resolver
	evaluator *policy.Evaluator
	searcher  Searcher
	metrics   *metrics.AccessMetrics
	log       *logger.Logger

	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

type Option func(*Service)

func WithSearcher(s Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

func WithMetrics(m *metrics.AccessMetrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(svc *Service) { svc.log = l }
}

// WithMaxAttempts bounds how many times a conflicting charge is re-evaluated.
func WithMaxAttempts(n int, backoff time.Duration) Option {
	return func(svc *Service) {
		svc.maxAttempts = n
		svc.backoff = backoff
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func NewService(store types.EntitlementStore, ledger types.UsageLedger, prices *pricing.Resolver, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		ledger:   ledger,
		prices:   prices,
		searcher: PendingSearcher{},
		log:      logger.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultMaxAttempts
	}
	if svc.backoff <= 0 {
		svc.backoff = defaultBackoff
	}
	if svc.ledger == nil {
		svc.ledger = noopLedger{}
	}
	svc.evaluator = policy.NewEvaluator(store, prices)
	return svc
}

// Charged is a decision together with the state left behind by its charge.
type Charged struct {
	Decision policy.Decision
	// RemainingCredits is the premium balance after the deduction.
	RemainingCredits int64
	Attempts         int
}

type SearchOutcome struct {
	Charged
	Term     string
	Result   SearchResult
	Refunded bool
}

// EvaluateSearch returns the decision for a request without applying it.
func (s *Service) EvaluateSearch(ctx context.Context, userID, chatID int64, term string, now time.Time) (policy.Decision, error) {
	d, err := s.evaluator.Evaluate(ctx, policy.Request{UserID: userID, ChatID: chatID, SearchTerm: term, Now: now})
	if err != nil {
		return policy.Decision{}, apperrors.Wrap(apperrors.CodeDependency, err, "evaluate search")
	}
	return d, nil
}

// Apply performs the single mutation carried by a granted decision.
// ErrCounterConflict and ErrInsufficientCredits mean nothing was written.
func (s *Service) Apply(ctx context.Context, d policy.Decision) (int64, error) {
	if !d.Granted() {
		return 0, apperrors.Newf(apperrors.CodeValidation, "cannot apply %s", d)
	}
	switch d.Charge.Kind {
	case policy.ChargeDeductCredits:
		remaining, err := s.store.DeductCredits(ctx, d.Charge.UserID, d.Charge.Amount)
		if err != nil {
			return remaining, err
		}
		if err := s.store.TouchPremiumChat(ctx, d.Charge.UserID, d.Charge.ChatID); err != nil {
			s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "premium chat not updated")
		}
		return remaining, nil
	case policy.ChargeIncrementCounter:
		return 0, s.store.SetFreeCounter(ctx, d.Charge.Counter)
	}
	return 0, apperrors.Newf(apperrors.CodeInternal, "unknown charge %q", d.Charge.Kind)
}

// Authorize evaluates and applies in a loop until the charge lands, the
// decision is no longer a grant, or attempts run out. Exhaustion fails closed.
func (s *Service) Authorize(ctx context.Context, userID, chatID int64, term string) (Charged, error) {
	var out Charged
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(s.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out = Charged{Attempts: out.Attempts + 1}
		d, err := s.EvaluateSearch(ctx, userID, chatID, term, s.now())
		if err != nil {
			return err
		}
		out.Decision = d
		if !d.Granted() {
			return nil
		}

		remaining, err := s.Apply(ctx, d)
		switch {
		case err == nil:
			out.RemainingCredits = remaining
			return nil
		case errors.Is(err, types.ErrCounterConflict), errors.Is(err, types.ErrInsufficientCredits):
			s.metrics.IncConflict(string(d.Charge.Kind))
			return retry.RetryableError(err)
		default:
			return apperrors.Wrap(apperrors.CodeDependency, err, "apply charge")
		}
	})
	if err != nil {
		if errors.Is(err, types.ErrCounterConflict) || errors.Is(err, types.ErrInsufficientCredits) {
			err = apperrors.Wrap(apperrors.CodeDependency, err, fmt.Sprintf("charge not applied after %d attempts", out.Attempts))
		} else if apperrors.As(err) == nil {
			err = apperrors.Wrap(apperrors.CodeDependency, err, "authorize search")
		}
		return Charged{Decision: policy.Decision{}, Attempts: out.Attempts}, err
	}
	return out, nil
}

// Search runs a full request: authorize, search, record. A premium charge is
// refunded when the searcher fails.
func (s *Service) Search(ctx context.Context, userID, chatID int64, term string) (*SearchOutcome, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "search term is required")
	}

	started := time.Now()
	defer func() { s.metrics.ObserveDuration(time.Since(started)) }()

	ctx = s.log.WithFields(ctx, map[string]any{"user_id": userID, "chat_id": chatID})

	charged, err := s.Authorize(ctx, userID, chatID, term)
	if err != nil {
		s.metrics.IncDecision("error", "", "")
		s.log.Error(ctx, "search failed closed", err)
		return nil, err
	}

	d := charged.Decision
	s.metrics.IncDecision(string(d.Outcome), string(d.Tier), string(d.Reason))
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"outcome":  string(d.Outcome),
		"tier":     string(d.Tier),
		"reason":   string(d.Reason),
		"attempts": charged.Attempts,
	}), "search decision")

	out := &SearchOutcome{Charged: charged, Term: term}
	if !d.Granted() {
		return out, nil
	}

	rec := d.Record
	result, searchErr := s.searcher.Search(ctx, term)
	if searchErr != nil {
		if d.Tier == types.TierPremium && s.refund(ctx, d) {
			out.Refunded = true
			out.RemainingCredits += d.Charge.Amount
			rec.CreditsUsed = 0
		}
	} else {
		out.Result = result
		rec.ResultsCount = result.Count
	}

	if err := s.ledger.AppendUsage(ctx, rec); err != nil {
		s.log.Error(ctx, "usage record lost", err)
	}

	if searchErr != nil {
		return out, apperrors.Wrap(apperrors.CodeDependency, searchErr, "search backend failed")
	}
	return out, nil
}

func (s *Service) refund(ctx context.Context, d policy.Decision) bool {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.AdjustCredits(ctx, d.Charge.UserID, d.Charge.Amount); err != nil {
		s.log.Error(ctx, "refund failed", err)
		return false
	}
	s.log.Info(ctx, fmt.Sprintf("refunded %d credits", d.Charge.Amount))
	return true
}

func (s *Service) Price(ctx context.Context) (int64, error) {
	p, err := s.prices.Price(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeDependency, err, "load price")
	}
	return p, nil
}

type noopLedger struct{}

func (noopLedger) AppendUsage(context.Context, types.UsageRecord) error { return nil }
