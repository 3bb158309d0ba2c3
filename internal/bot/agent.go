package bot

import (
	"fmt"

	"rails/internal/app"
	"rails/internal/domain"
)

// Agent represents an automated participant.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent for its move. ok is false when the agent has nothing to do right now.
func (a *Agent) Play(t Table) (action domain.Action, ok bool, err error) {
	var mine []domain.Action
	for _, l := range t.LegalActions() {
		if l.Actor == a.ID {
			mine = append(mine, l)
		}
	}
	if len(mine) == 0 {
		return domain.Action{}, false, nil
	}

	snap := t.Snapshot()
	view := View{Self: a.ID, Cash: t.FreeCash(a.ID), Snapshot: snap}
	if snap.Company != "" {
		view.CompanyCash = t.FreeCash(snap.Company)
	}
	action, err = a.Strategy.Choose(view, mine)
	if err != nil {
		return domain.Action{}, false, fmt.Errorf("bot %s: %w", a.ID, err)
	}
	action.Actor = a.ID
	action.MinBid, action.MaxBid, action.Step = 0, 0, 0
	return action, true, nil
}

// OnGameEvent notifies the agent of a game event.
func (a *Agent) OnGameEvent(event app.Event) {
	a.Strategy.OnEvent(event)
}
