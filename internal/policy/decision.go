package policy

import (
	"fmt"

	"github.com/BatmanBruc/bat-bot-search/types"
)

type Outcome string

const (
	OutcomeGrant    Outcome = "grant"
	OutcomeDeny     Outcome = "deny"
	OutcomeThrottle Outcome = "throttle"
)

type DenyReason string

const (
	ReasonInsufficientCredits DenyReason = "insufficient_credits"
	ReasonChatNotAuthorized   DenyReason = "chat_not_authorized"
	ReasonDailyLimitReached   DenyReason = "daily_limit_reached"
)

type ChargeKind string

const (
	ChargeDeductCredits    ChargeKind = "deduct_credits"
	ChargeIncrementCounter ChargeKind = "increment_counter"
)

// Charge is the single store mutation a Grant must be followed by.
type Charge struct {
	Kind    ChargeKind
	UserID  int64
	ChatID  int64
	Amount  int64
	Counter types.CounterUpdate
}

type Decision struct {
	Outcome Outcome
	Tier    types.Tier
	Reason  DenyReason

	// Set for insufficient credits.
	Have int64
	Need int64
	// Set for daily limit denials and free grants.
	Limit int
	// Set for throttles.
	RemainingSeconds int

	Charge Charge
	Record types.UsageRecord
}

func (d Decision) Granted() bool {
	return d.Outcome == OutcomeGrant
}

func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeGrant:
		return fmt.Sprintf("Grant(%s)", d.Tier)
	case OutcomeThrottle:
		return fmt.Sprintf("Throttle(%ds)", d.RemainingSeconds)
	case OutcomeDeny:
		switch d.Reason {
		case ReasonInsufficientCredits:
			return fmt.Sprintf("Deny(%s have=%d need=%d)", d.Reason, d.Have, d.Need)
		case ReasonDailyLimitReached:
			return fmt.Sprintf("Deny(%s limit=%d)", d.Reason, d.Limit)
		}
		return fmt.Sprintf("Deny(%s)", d.Reason)
	}
	return "Decision(?)"
}

func deny(tier types.Tier, reason DenyReason) Decision {
	return Decision{Outcome: OutcomeDeny, Tier: tier, Reason: reason}
}
