package domain

import "fmt"

// RoundKind identifies the type of round currently driving the game.
type RoundKind string

const (
	// RoundAuction sells the open packet of items through the sequential auction.
	RoundAuction RoundKind = "auction"
	// RoundTrading is ordinary share trading.
	RoundTrading RoundKind = "trading"
	// RoundOperating lets every operating company take one turn.
	RoundOperating RoundKind = "operating"
	// RoundForcedShareSale is nested inside another round while a participant raises cash.
	RoundForcedShareSale RoundKind = "forced_share_sale"
	// RoundFinalExchange is the end-game cleanup round.
	RoundFinalExchange RoundKind = "final_exchange"
	// RoundGameOver is terminal.
	RoundGameOver RoundKind = "game_over"
)

// ItemStatus is the auction lifecycle of an Item.
type ItemStatus int

const (
	ItemUnavailable ItemStatus = iota
	ItemSelectable
	ItemUnderAuction
	ItemSold
)

func (s ItemStatus) String() string {
	switch s {
	case ItemUnavailable:
		return "unavailable"
	case ItemSelectable:
		return "selectable"
	case ItemUnderAuction:
		return "under_auction"
	case ItemSold:
		return "sold"
	default:
		return fmt.Sprintf("item_status(%d)", int(s))
	}
}

// Item is a unit sold through the sequential auction (a right, a minor company, a founding slot).
type Item struct {
	ID     string
	Packet int

	BasePrice int64
	Increment int64 // bids must be multiples of this

	HighestBid int64
	Bidder     string // empty when nobody has bid
	Status     ItemStatus

	Owner      string
	SoldPrice  int64
	Reductions int

	Rights   TokenSet
	Requires Token // packet gate; empty means always open
}

// MinimumBid returns the lowest acceptable bid on the item.
func (it *Item) MinimumBid() int64 {
	if it.Bidder == "" {
		return it.BasePrice
	}
	return it.HighestBid + it.Increment
}

// RoundDescriptor identifies the active round.
type RoundDescriptor struct {
	Kind     RoundKind
	Number   int // ordinal of the round in the game, 1-based
	Progress int // operating round number within the current sequence
	Of       int // operating rounds targeted for the sequence
}

func (d RoundDescriptor) String() string {
	if d.Kind == RoundOperating {
		return fmt.Sprintf("%s %d/%d", d.Kind, d.Progress, d.Of)
	}
	return string(d.Kind)
}

// MandatoryAction is the single pending action that must be taken before normal play resumes.
type MandatoryAction struct {
	Kind   ActionKind
	Actor  string
	Holder string // company that must discard, or payee of a forced sale
	Amount int64  // outstanding payment for a forced sale
}
