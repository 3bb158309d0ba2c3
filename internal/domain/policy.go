package domain

import "github.com/shopspring/decimal"

// FallbackRule picks who receives an item forced out at the floor price.
type FallbackRule string

const (
	FallbackPriorityHolder FallbackRule = "priority_holder"
	FallbackCycleStarter   FallbackRule = "cycle_starter"
)

// ReductionRule lowers the price of an item every participant passed on.
type ReductionRule struct {
	Decrement int64
	Percent   decimal.Decimal // replaces Decrement when positive
	Floor     int64
	Fallback  FallbackRule
}

var hundred = decimal.NewFromInt(100)

// Next returns the reduced price and whether it reached the floor. The price always drops by at
// least one modulus step, so repeated reductions terminate.
func (r ReductionRule) Next(price, modulus int64) (int64, bool) {
	if modulus <= 0 {
		modulus = 1
	}
	if price <= r.Floor {
		return r.Floor, true
	}

	next := price - r.Decrement
	if r.Percent.IsPositive() {
		keep := hundred.Sub(r.Percent).Div(hundred)
		step := decimal.NewFromInt(modulus)
		next = decimal.NewFromInt(price).Mul(keep).Div(step).Floor().Mul(step).IntPart()
	}
	if next >= price {
		next = price - modulus
	}
	if next <= r.Floor {
		return r.Floor, true
	}
	return next, false
}

// AuctionConfig parameterises the sequential auction.
type AuctionConfig struct {
	Reduction ReductionRule
	// PassesPersist keeps a participant out of an item's bidding once they pass on it.
	PassesPersist bool
}

// PolicyView is the read-only context handed to ruleset callbacks.
type PolicyView struct {
	Round       RoundDescriptor
	Counters    Counters
	Permissions TokenSet
	Priority    string
	BankCash    int64
}

// ExhaustionEffect is the ruleset's reaction to a resource type running out.
type ExhaustionEffect struct {
	EndOperating       bool
	StartFinalSequence bool
}

// RulesetPolicy is the per-variant table of values and callbacks the sequencer consults where the
// default transition table is insufficient. Nil callbacks keep the default behaviour.
type RulesetPolicy struct {
	Name    string
	Auction AuctionConfig

	ReorderByCashAfterAuction bool
	BankruptcyEndsGame        bool

	OnRoundComplete         func(view PolicyView, proposed Transition) (Transition, bool)
	OnResourceTypeExhausted func(view PolicyView, interrupt Interrupt) ExhaustionEffect
	OnFinalSequenceCheck    func(view PolicyView, proposed Transition) (Transition, bool)
}
