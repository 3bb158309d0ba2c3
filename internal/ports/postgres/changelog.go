package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rails/internal/domain"
	"rails/internal/ports"
)

// Schema creates the change_log table.
const Schema = `
CREATE TABLE IF NOT EXISTS change_log (
	id          UUID PRIMARY KEY,
	game_id     TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	action      BYTEA NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (game_id, seq)
);
`

// DB is the part of *pgxpool.Pool the change log uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChangeLog stores accepted actions in Postgres, cbor-encoded.
type ChangeLog struct {
	db  DB
	now func() time.Time
}

var _ ports.ChangeLog = (*ChangeLog)(nil)

// NewChangeLog wraps a connection pool.
func NewChangeLog(db DB) *ChangeLog {
	return &ChangeLog{db: db, now: time.Now}
}

// EnsureSchema creates the table when missing.
func (l *ChangeLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create change_log: %w", err)
	}
	return nil
}

// Append implements ports.ChangeLog. The sequence number is assigned in the insert itself; a
// concurrent writer to the same game loses on the unique constraint.
func (l *ChangeLog) Append(ctx context.Context, gameID string, action domain.Action) (ports.ChangeEntry, error) {
	payload, err := encodeAction(action)
	if err != nil {
		return ports.ChangeEntry{}, err
	}
	entry := ports.ChangeEntry{
		ID:         uuid.New(),
		GameID:     gameID,
		Action:     action,
		RecordedAt: l.now().UTC(),
	}
	err = l.db.QueryRow(ctx, `
		INSERT INTO change_log (id, game_id, seq, action, recorded_at)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4 FROM change_log WHERE game_id = $2
		RETURNING seq`,
		entry.ID, gameID, payload, entry.RecordedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return ports.ChangeEntry{}, fmt.Errorf("append %s: %w", gameID, err)
	}
	return entry, nil
}

// Entries implements ports.ChangeLog.
func (l *ChangeLog) Entries(ctx context.Context, gameID string) ([]ports.ChangeEntry, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, seq, action, recorded_at FROM change_log
		WHERE game_id = $1 ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("entries %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []ports.ChangeEntry
	for rows.Next() {
		var (
			e       = ports.ChangeEntry{GameID: gameID}
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Seq, &payload, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", gameID, err)
		}
		if e.Action, err = decodeAction(payload); err != nil {
			return nil, fmt.Errorf("entry %d of %s: %w", e.Seq, gameID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entries %s: %w", gameID, err)
	}
	if len(out) == 0 {
		return nil, ports.ErrGameNotFound
	}
	return out, nil
}

// Truncate implements ports.ChangeLog.
func (l *ChangeLog) Truncate(ctx context.Context, gameID string, keep int) error {
	var count int
	err := l.db.QueryRow(ctx, `SELECT count(*) FROM change_log WHERE game_id = $1`, gameID).Scan(&count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("count %s: %w", gameID, err)
	}
	if count == 0 {
		return ports.ErrGameNotFound
	}
	if keep < 0 || keep > count {
		return fmt.Errorf("truncate %s to %d: log has %d entries", gameID, keep, count)
	}
	if _, err := l.db.Exec(ctx, `DELETE FROM change_log WHERE game_id = $1 AND seq > $2`, gameID, keep); err != nil {
		return fmt.Errorf("truncate %s: %w", gameID, err)
	}
	return nil
}
