package bot

import (
	"rails/internal/app"
	"rails/internal/domain"
)

// PassiveBot never spends money by choice. It passes, ends its turn, or takes the first
// action it is forced into.
type PassiveBot struct{}

var passivePreference = []domain.ActionKind{
	domain.ActionPass,
	domain.ActionEndTurn,
	domain.ActionDiscardResource,
	domain.ActionSellShare,
	domain.ActionDeclareBankruptcy,
}

func (b *PassiveBot) Choose(_ View, legal []domain.Action) (domain.Action, error) {
	if len(legal) == 0 {
		return domain.Action{}, ErrNoLegalAction
	}
	for _, kind := range passivePreference {
		if a, ok := firstOf(legal, kind); ok {
			return a, nil
		}
	}
	// Selection with no pass on offer: nominate, or open at the minimum.
	a := legal[0]
	if a.Kind == domain.ActionBid {
		a.Amount = a.MinBid
	}
	return a, nil
}

func (b *PassiveBot) OnEvent(app.Event) {}

func firstOf(legal []domain.Action, kind domain.ActionKind) (domain.Action, bool) {
	for _, a := range legal {
		if a.Kind == kind {
			return a, true
		}
	}
	return domain.Action{}, false
}

func allOf(legal []domain.Action, kind domain.ActionKind) []domain.Action {
	var out []domain.Action
	for _, a := range legal {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
