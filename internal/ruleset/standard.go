package ruleset

import "rails/internal/domain"

// Standard ends the game after the operating sequence in which the bank breaks, and otherwise keeps
// the default transitions.
func Standard(auction domain.AuctionConfig) domain.RulesetPolicy {
	return domain.RulesetPolicy{
		Name:            "standard",
		Auction:         auction,
		OnRoundComplete: bankBroken,
	}
}

// StarterFallback is the variant where a pass takes a participant out of an item for good and an
// unwanted item goes to whoever opened its pricing cycle.
func StarterFallback(auction domain.AuctionConfig) domain.RulesetPolicy {
	auction.PassesPersist = true
	auction.Reduction.Fallback = domain.FallbackCycleStarter
	p := Standard(auction)
	p.Name = "starter_fallback"
	return p
}

func bankBroken(view domain.PolicyView, proposed domain.Transition) (domain.Transition, bool) {
	if view.BankCash > 0 || proposed.From != domain.RoundOperating || proposed.Next == domain.RoundOperating {
		return proposed, false
	}
	switch proposed.Next {
	case domain.RoundFinalExchange, domain.RoundGameOver:
		return proposed, false
	}
	if proposed.Counters.HasFinalExchange {
		proposed.Next = domain.RoundFinalExchange
	} else {
		proposed.Next = domain.RoundGameOver
	}
	proposed.Reason = "bank broken"
	return proposed, true
}
