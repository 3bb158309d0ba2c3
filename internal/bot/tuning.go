package bot

import "github.com/shopspring/decimal"

// ValueTuning holds the percentages the value bot plays by.
type ValueTuning struct {
	BidPremium       decimal.Decimal // paid over an item's base price at most
	UnwantedDiscount decimal.Decimal // taken off the valuation once an item was marked down
	ShareReserve     decimal.Decimal // of free cash kept back when buying shares
	ResourceBudget   decimal.Decimal // of company cash one resource may cost
}

// DefaultTuning bids modestly and keeps a cash cushion.
var DefaultTuning = ValueTuning{
	BidPremium:       decimal.NewFromInt(25),
	UnwantedDiscount: decimal.NewFromInt(10),
	ShareReserve:     decimal.NewFromInt(20),
	ResourceBudget:   decimal.NewFromInt(60),
}

var hundred = decimal.NewFromInt(100)

func percentOf(v int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(v).Mul(pct).Div(hundred).Floor().IntPart()
}
