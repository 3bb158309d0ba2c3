package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"rails/internal/domain"
	"rails/internal/ports"
)

// StorageChangeLog keeps each game's accepted actions in one Nakama storage object owned by the
// system user. Writes are conditional on the version read, so two matches never interleave.
type StorageChangeLog struct {
	nk  runtime.NakamaModule
	now func() time.Time
}

var _ ports.ChangeLog = (*StorageChangeLog)(nil)

// NewStorageChangeLog wraps the Nakama module.
func NewStorageChangeLog(nk runtime.NakamaModule) *StorageChangeLog {
	return &StorageChangeLog{nk: nk, now: time.Now}
}

type storedLog struct {
	Entries []storedEntry `json:"entries"`
}

type storedEntry struct {
	ID         string        `json:"id"`
	Seq        int           `json:"seq"`
	Action     domain.Action `json:"action"`
	RecordedAt time.Time     `json:"recorded_at"`
}

func (l *StorageChangeLog) read(ctx context.Context, gameID string) (storedLog, string, error) {
	objects, err := l.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: ChangeLogCollection,
		Key:        gameID,
	}})
	if err != nil {
		return storedLog{}, "", fmt.Errorf("read change log %s: %w", gameID, err)
	}
	if len(objects) == 0 {
		return storedLog{}, "", nil
	}
	var log storedLog
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &log); err != nil {
		return storedLog{}, "", fmt.Errorf("decode change log %s: %w", gameID, err)
	}
	return log, objects[0].GetVersion(), nil
}

func (l *StorageChangeLog) write(ctx context.Context, gameID string, log storedLog, version string) error {
	if version == "" {
		version = "*" // only if absent
	}
	value, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode change log %s: %w", gameID, err)
	}
	_, err = l.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      ChangeLogCollection,
		Key:             gameID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  0, // server only
		PermissionWrite: 0,
	}})
	if err != nil {
		return fmt.Errorf("write change log %s: %w", gameID, err)
	}
	return nil
}

// Append implements ports.ChangeLog.
func (l *StorageChangeLog) Append(ctx context.Context, gameID string, action domain.Action) (ports.ChangeEntry, error) {
	log, version, err := l.read(ctx, gameID)
	if err != nil {
		return ports.ChangeEntry{}, err
	}
	action.MinBid, action.MaxBid, action.Step = 0, 0, 0
	stored := storedEntry{
		ID:         uuid.NewString(),
		Seq:        len(log.Entries) + 1,
		Action:     action,
		RecordedAt: l.now().UTC(),
	}
	log.Entries = append(log.Entries, stored)
	if err := l.write(ctx, gameID, log, version); err != nil {
		return ports.ChangeEntry{}, err
	}
	return toChangeEntry(gameID, stored), nil
}

// Entries implements ports.ChangeLog.
func (l *StorageChangeLog) Entries(ctx context.Context, gameID string) ([]ports.ChangeEntry, error) {
	log, version, err := l.read(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, ports.ErrGameNotFound
	}
	out := make([]ports.ChangeEntry, 0, len(log.Entries))
	for _, e := range log.Entries {
		out = append(out, toChangeEntry(gameID, e))
	}
	return out, nil
}

// Truncate implements ports.ChangeLog.
func (l *StorageChangeLog) Truncate(ctx context.Context, gameID string, keep int) error {
	log, version, err := l.read(ctx, gameID)
	if err != nil {
		return err
	}
	if version == "" {
		return ports.ErrGameNotFound
	}
	if keep < 0 || keep > len(log.Entries) {
		return fmt.Errorf("truncate %s to %d: log has %d entries", gameID, keep, len(log.Entries))
	}
	log.Entries = log.Entries[:keep]
	return l.write(ctx, gameID, log, version)
}

func toChangeEntry(gameID string, e storedEntry) ports.ChangeEntry {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.Nil
	}
	return ports.ChangeEntry{ID: id, GameID: gameID, Seq: e.Seq, Action: e.Action, RecordedAt: e.RecordedAt}
}
