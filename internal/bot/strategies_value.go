package bot

import (
	"rails/internal/app"
	"rails/internal/bot/brain"
	"rails/internal/domain"
)

// ValueBot bids up to a valuation, buys affordable shares and equips its companies.
type ValueBot struct {
	Tuning ValueTuning
	Memory *brain.GameMemory
}

// NewValueBot creates a value bot playing as self.
func NewValueBot(self string, tuning ValueTuning) *ValueBot {
	return &ValueBot{Tuning: tuning, Memory: brain.NewMemory(self)}
}

func (b *ValueBot) OnEvent(event app.Event) { b.Memory.Observe(event) }

func (b *ValueBot) Choose(view View, legal []domain.Action) (domain.Action, error) {
	if len(legal) == 0 {
		return domain.Action{}, ErrNoLegalAction
	}
	if view.Snapshot.Pending != nil {
		return b.settle(legal), nil
	}
	if a, ok := firstOf(legal, domain.ActionExchange); ok {
		return a, nil
	}
	if a, ok := b.bid(view, legal); ok {
		return a, nil
	}
	if a, ok := b.buyShare(view, legal); ok {
		return a, nil
	}
	if a, ok := b.acquire(view, legal); ok {
		return a, nil
	}
	if sel := allOf(legal, domain.ActionSelectForAuction); len(sel) > 0 {
		if _, canPass := firstOf(legal, domain.ActionPass); !canPass {
			return b.cheapestSelection(view, sel), nil
		}
	}
	return (&PassiveBot{}).Choose(view, legal)
}

// settle answers a mandatory action: discard the oldest type, sell, or give up.
func (b *ValueBot) settle(legal []domain.Action) domain.Action {
	for _, kind := range []domain.ActionKind{domain.ActionDiscardResource, domain.ActionSellShare, domain.ActionDeclareBankruptcy} {
		if a, ok := firstOf(legal, kind); ok {
			return a
		}
	}
	return legal[0]
}

func (b *ValueBot) valuation(view View, item string) (int64, bool) {
	for _, it := range view.Snapshot.Items {
		if it.ID != item {
			continue
		}
		v := it.BasePrice + percentOf(it.BasePrice, b.Tuning.BidPremium)
		if b.Memory.Unwanted(item) {
			v -= percentOf(v, b.Tuning.UnwantedDiscount)
		}
		return v, true
	}
	return 0, false
}

// bid picks the item with the widest margin between the minimum bid and what it is worth.
func (b *ValueBot) bid(view View, legal []domain.Action) (domain.Action, bool) {
	var best domain.Action
	bestMargin := int64(-1)
	for _, a := range allOf(legal, domain.ActionBid) {
		worth, ok := b.valuation(view, a.Item)
		if !ok {
			continue
		}
		limit := min(worth, a.MaxBid)
		if a.Step > 0 {
			limit = limit / a.Step * a.Step
		}
		if a.MinBid > limit {
			continue
		}
		margin := limit - a.MinBid
		if b.Memory.Contested(a.Item, a.MinBid) == 0 {
			margin++
		}
		if margin > bestMargin {
			best, bestMargin = a, margin
		}
	}
	if bestMargin < 0 {
		return domain.Action{}, false
	}
	best.Amount = best.MinBid
	return best, true
}

func (b *ValueBot) buyShare(view View, legal []domain.Action) (domain.Action, bool) {
	budget := view.Cash - percentOf(view.Cash, b.Tuning.ShareReserve)
	var best domain.Action
	found := false
	for _, a := range allOf(legal, domain.ActionBuyShare) {
		if a.Amount > budget {
			continue
		}
		if !found || a.Amount < best.Amount {
			best, found = a, true
		}
	}
	return best, found
}

// acquire buys the most expensive resource within budget, so companies move to newer types.
func (b *ValueBot) acquire(view View, legal []domain.Action) (domain.Action, bool) {
	budget := percentOf(view.CompanyCash, b.Tuning.ResourceBudget)
	var best domain.Action
	found := false
	for _, a := range allOf(legal, domain.ActionAcquireResource) {
		if a.Amount > budget {
			continue
		}
		if !found || a.Amount > best.Amount {
			best, found = a, true
		}
	}
	return best, found
}

func (b *ValueBot) cheapestSelection(view View, sel []domain.Action) domain.Action {
	best := sel[0]
	bestPrice := int64(-1)
	for _, a := range sel {
		for _, it := range view.Snapshot.Items {
			if it.ID == a.Item && (bestPrice < 0 || it.BasePrice < bestPrice) {
				best, bestPrice = a, it.BasePrice
			}
		}
	}
	return best
}
