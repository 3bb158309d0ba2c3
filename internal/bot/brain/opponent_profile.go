package brain

// OpponentProfile tracks what one rival has shown at auction.
type OpponentProfile struct {
	Participant string
	// HighestBid maps an item to the highest amount this rival bid on it.
	HighestBid map[string]int64
	// PassedAt maps an item to the price it stood at when this rival passed on it.
	PassedAt map[string]int64
	Spent    int64
}

// NewOpponentProfile initializes a profile for a participant.
func NewOpponentProfile(participant string) *OpponentProfile {
	return &OpponentProfile{
		Participant: participant,
		HighestBid:  make(map[string]int64),
		PassedAt:    make(map[string]int64),
	}
}

// RecordBid logs a bid by this rival.
func (p *OpponentProfile) RecordBid(item string, amount int64) {
	if amount > p.HighestBid[item] {
		p.HighestBid[item] = amount
	}
}

// RecordPass notes that this rival declined item at price.
func (p *OpponentProfile) RecordPass(item string, price int64) {
	if item == "" {
		return
	}
	if cur, ok := p.PassedAt[item]; !ok || price < cur {
		p.PassedAt[item] = price
	}
}

// MayBid reports whether there is no evidence that this rival refuses item at price.
func (p *OpponentProfile) MayBid(item string, price int64) bool {
	passed, ok := p.PassedAt[item]
	if !ok {
		return true
	}
	return price < passed
}
