package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rails/internal/domain"
)

// ErrGameNotFound is returned when a change log has no entries for a game.
var ErrGameNotFound = errors.New("game not found in change log")

// ChangeEntry is one accepted action.
type ChangeEntry struct {
	ID         uuid.UUID
	GameID     string
	Seq        int
	Action     domain.Action
	RecordedAt time.Time
}

// ChangeLog persists accepted actions so a game can be replayed or rewound.
type ChangeLog interface {
	// Append records an accepted action and assigns the next sequence number.
	Append(ctx context.Context, gameID string, action domain.Action) (ChangeEntry, error)

	// Entries returns the actions of a game in sequence order.
	Entries(ctx context.Context, gameID string) ([]ChangeEntry, error)

	// Truncate drops every entry after the first keep.
	Truncate(ctx context.Context, gameID string, keep int) error
}
