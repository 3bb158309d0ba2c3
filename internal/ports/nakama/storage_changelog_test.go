package nakama

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"rails/internal/domain"
	"rails/internal/ports"
)

func TestStorageChangeLog_AppendAndEntries(t *testing.T) {
	ctx := context.Background()
	nk := newFakeNakama()
	log := NewStorageChangeLog(nk)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return at }

	first, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 25, MinBid: 20, MaxBid: 300, Step: 5})
	assert.NoError(t, err)
	check.Equal(t, 1, first.Seq)
	check.Equal(t, "g1", first.GameID)
	check.Equal(t, at, first.RecordedAt)

	second, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: "P2"})
	assert.NoError(t, err)
	check.Equal(t, 2, second.Seq)
	check.NotEqual(t, first.ID, second.ID)

	_, err = log.Append(ctx, "g2", domain.Action{Kind: domain.ActionPass, Actor: "P1"})
	assert.NoError(t, err)

	entries, err := log.Entries(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))
	check.Equal(t, domain.Action{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 25}, entries[0].Action)
	check.Equal(t, first.ID, entries[0].ID)
	check.Equal(t, "P2", entries[1].Action.Actor)
}

func TestStorageChangeLog_Truncate(t *testing.T) {
	ctx := context.Background()
	log := NewStorageChangeLog(newFakeNakama())
	for _, actor := range []string{"P1", "P2", "P3"} {
		_, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: actor})
		assert.NoError(t, err)
	}

	check.Error(t, log.Truncate(ctx, "g1", 4))
	check.Error(t, log.Truncate(ctx, "g1", -1))
	assert.NoError(t, log.Truncate(ctx, "g1", 1))

	entries, err := log.Entries(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
	check.Equal(t, "P1", entries[0].Action.Actor)

	next, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: "P2"})
	assert.NoError(t, err)
	check.Equal(t, 2, next.Seq)
}

func TestStorageChangeLog_UnknownGame(t *testing.T) {
	ctx := context.Background()
	log := NewStorageChangeLog(newFakeNakama())

	_, err := log.Entries(ctx, "missing")
	check.True(t, errors.Is(err, ports.ErrGameNotFound))
	check.True(t, errors.Is(log.Truncate(ctx, "missing", 0), ports.ErrGameNotFound))
}

func TestStorageChangeLog_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	nk := newFakeNakama()
	log := NewStorageChangeLog(nk)
	_, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: "P1"})
	assert.NoError(t, err)

	stale, version, err := log.read(ctx, "g1")
	assert.NoError(t, err)
	_, err = log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: "P2"})
	assert.NoError(t, err)

	check.Error(t, log.write(ctx, "g1", stale, version))
	check.Error(t, log.write(ctx, "g1", stale, ""))
}

func TestStorageChangeLog_CorruptObject(t *testing.T) {
	ctx := context.Background()
	nk := newFakeNakama()
	log := NewStorageChangeLog(nk)
	_, err := log.Append(ctx, "g1", domain.Action{Kind: domain.ActionPass, Actor: "P1"})
	assert.NoError(t, err)
	nk.objects[ChangeLogCollection+"/g1"].Value = "{not json"

	_, err = log.Entries(ctx, "g1")
	check.Error(t, err)
}
