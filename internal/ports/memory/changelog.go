package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rails/internal/domain"
	"rails/internal/ports"
)

// ChangeLog keeps entries in process memory. It is safe for concurrent use so one log can back
// several games.
type ChangeLog struct {
	mu      sync.Mutex
	entries map[string][]ports.ChangeEntry
	now     func() time.Time
}

var _ ports.ChangeLog = (*ChangeLog)(nil)

// NewChangeLog returns an empty log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{entries: make(map[string][]ports.ChangeEntry), now: time.Now}
}

// Append implements ports.ChangeLog.
func (l *ChangeLog) Append(_ context.Context, gameID string, action domain.Action) (ports.ChangeEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := ports.ChangeEntry{
		ID:         uuid.New(),
		GameID:     gameID,
		Seq:        len(l.entries[gameID]) + 1,
		Action:     action,
		RecordedAt: l.now().UTC(),
	}
	l.entries[gameID] = append(l.entries[gameID], entry)
	return entry, nil
}

// Entries implements ports.ChangeLog.
func (l *ChangeLog) Entries(_ context.Context, gameID string) ([]ports.ChangeEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.entries[gameID]
	if !ok {
		return nil, ports.ErrGameNotFound
	}
	return append([]ports.ChangeEntry(nil), entries...), nil
}

// Truncate implements ports.ChangeLog.
func (l *ChangeLog) Truncate(_ context.Context, gameID string, keep int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, ok := l.entries[gameID]
	if !ok {
		return ports.ErrGameNotFound
	}
	if keep < 0 || keep > len(entries) {
		return fmt.Errorf("truncate %s to %d: log has %d entries", gameID, keep, len(entries))
	}
	l.entries[gameID] = entries[:keep:keep]
	return nil
}
