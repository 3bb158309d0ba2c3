package bot

import (
	"errors"

	"rails/internal/app"
	"rails/internal/domain"
)

// ErrNoLegalAction is returned when a brain is asked to choose from nothing.
var ErrNoLegalAction = errors.New("no legal action to choose from")

// View is what a bot sees when it is asked to act.
type View struct {
	Self     string
	Cash     int64 // free cash of Self
	Snapshot app.Snapshot
	// CompanyCash is the free cash of the operating company, when Self presides over it.
	CompanyCash int64
}

// Brain is the interface that all bot strategies must implement. Choose must return one of
// legal, with the amount filled in for bid templates.
type Brain interface {
	Choose(view View, legal []domain.Action) (domain.Action, error)
	OnEvent(event app.Event)
}

// Table is the game a bot plays at. *app.Game satisfies it.
type Table interface {
	Snapshot() app.Snapshot
	LegalActions() []domain.Action
	FreeCash(holder string) int64
}
