package brain

import (
	"rails/internal/app"
)

// GameMemory is a bot's private record of what rivals did.
type GameMemory struct {
	Self      string
	Opponents map[string]*OpponentProfile
	// Prices is the latest known asking price or high bid per item.
	Prices map[string]int64
	// Reductions counts how often each item's price was lowered because nobody wanted it.
	Reductions map[string]int
	Sold       map[string]string
}

// NewMemory initializes a fresh memory for the participant self.
func NewMemory(self string) *GameMemory {
	m := &GameMemory{Self: self}
	m.Reset()
	return m
}

// Reset clears the memory for a new game.
func (m *GameMemory) Reset() {
	m.Opponents = make(map[string]*OpponentProfile)
	m.Prices = make(map[string]int64)
	m.Reductions = make(map[string]int)
	m.Sold = make(map[string]string)
}

func (m *GameMemory) profile(p string) *OpponentProfile {
	prof, ok := m.Opponents[p]
	if !ok {
		prof = NewOpponentProfile(p)
		m.Opponents[p] = prof
	}
	return prof
}

// Observe folds one game event into the memory. Own actions are ignored.
func (m *GameMemory) Observe(ev app.Event) {
	switch p := ev.Payload.(type) {
	case app.GameStartedPayload:
		m.Reset()
	case app.BidPlacedPayload:
		m.Prices[p.Item] = p.Amount
		if p.Participant != m.Self {
			m.profile(p.Participant).RecordBid(p.Item, p.Amount)
		}
	case app.PassedPayload:
		if p.Participant != m.Self {
			m.profile(p.Participant).RecordPass(p.Item, m.Prices[p.Item])
		}
	case app.PriceReducedPayload:
		m.Prices[p.Item] = p.Price
		m.Reductions[p.Item]++
	case app.ItemSoldPayload:
		m.Sold[p.Item] = p.Winner
		if p.Winner != m.Self {
			m.profile(p.Winner).Spent += p.Price
		}
	case app.ShareTradedPayload:
		if p.Participant != m.Self && p.Bought {
			m.profile(p.Participant).Spent += p.Price
		}
	}
}

// Contested reports how many rivals may still want item at price.
func (m *GameMemory) Contested(item string, price int64) int {
	if _, sold := m.Sold[item]; sold {
		return 0
	}
	n := 0
	for _, prof := range m.Opponents {
		if prof.MayBid(item, price) && prof.HighestBid[item] > 0 {
			n++
		}
	}
	return n
}

// Unwanted reports whether item has been marked down at least once.
func (m *GameMemory) Unwanted(item string) bool {
	return m.Reductions[item] > 0
}
