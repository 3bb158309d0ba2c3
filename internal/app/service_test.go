package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"go.uber.org/zap"

	"rails/internal/config"
	"rails/internal/domain"
	"rails/internal/ports"
	"rails/internal/ports/memory"
)

const serviceYAML = `
participants: [P1, P2, P3]
starting_cash: 300
bank_cash: 5000
auction:
  increment: 5
  decrement: 5
packets:
  - items:
      - {id: A, price: 20}
      - {id: B, price: 40, company: PRR}
companies:
  - {id: PRR, par: 100, float_percent: 20}
resources:
  types:
    - {name: "2", count: 2, price: 80}
    - {name: "3", count: 2, price: 180}
results:
  secret: test-secret
`

func newTestService(t *testing.T) (*Service, *memory.ChangeLog) {
	t.Helper()
	cfg, err := config.Parse([]byte(serviceYAML))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Finish())

	changes := memory.NewChangeLog()
	policy := domain.RulesetPolicy{
		Name:    "test",
		Auction: domain.AuctionConfig{Reduction: domain.ReductionRule{Decrement: cfg.Auction.Decrement}},
	}
	signer := NewResultSigner(cfg.Results.Secret, "rails", time.Hour)
	return NewService(zap.NewNop(), cfg, policy, changes, signer), changes
}

func TestService_NewGameFromConfig(t *testing.T) {
	svc, _ := newTestService(t)
	g, evs, err := svc.NewGame("")
	assert.NoError(t, err)
	check.NotEqual(t, "", g.ID())

	ev, ok := findEvent(evs, EventGameStarted)
	assert.True(t, ok)
	check.Equal(t, []string{"P1", "P2", "P3"}, ev.Payload.(GameStartedPayload).Participants)
	check.Equal(t, domain.RoundAuction, g.Round().Kind)
	check.Equal(t, 2, len(g.Snapshot().Items))
}

func TestService_SubmitRecordsAcceptedActionsOnly(t *testing.T) {
	ctx := context.Background()
	svc, changes := newTestService(t)
	g, _, err := svc.NewGame("g1")
	assert.NoError(t, err)

	_, err = svc.Submit(ctx, g, domain.Action{Kind: domain.ActionBid, Actor: "P2", Item: "A", Amount: 20})
	check.Error(t, err)
	_, err = svc.Submit(ctx, g, domain.Action{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 25})
	assert.NoError(t, err)

	entries, err := changes.Entries(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
	check.Equal(t, 1, entries[0].Seq)
	check.Equal(t, "P1", entries[0].Action.Actor)
}

func TestService_ReplayAndRewind(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	g, _, err := svc.NewGame("g1")
	assert.NoError(t, err)

	actions := []domain.Action{
		{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 20},
		{Kind: domain.ActionPass, Actor: "P2"},
		{Kind: domain.ActionPass, Actor: "P3"},
		{Kind: domain.ActionBid, Actor: "P2", Item: "B", Amount: 40},
	}
	for _, a := range actions {
		_, err := svc.Submit(ctx, g, a)
		assert.NoError(t, err)
	}

	replayed, err := svc.Replay(ctx, "g1", nil)
	assert.NoError(t, err)
	check.Equal(t, g.Snapshot(), replayed.Snapshot())
	check.Equal(t, g.FreeCash("P2"), replayed.FreeCash("P2"))

	rewound, err := svc.Rewind(ctx, "g1", nil, 3)
	assert.NoError(t, err)
	check.Equal(t, "P2", rewound.Turn())
	item, ok := rewound.Item("B")
	assert.True(t, ok)
	check.Equal(t, "", item.Bidder)
	check.Equal(t, int64(300), rewound.FreeCash("P2"))
}

func TestService_ReplayUnknownGameStartsFresh(t *testing.T) {
	svc, _ := newTestService(t)
	g, err := svc.Replay(context.Background(), "missing", nil)
	assert.NoError(t, err)
	check.Equal(t, domain.RoundAuction, g.Round().Kind)
	check.Equal(t, "P1", g.Turn())
}

type flakyChangeLog struct {
	*memory.ChangeLog
	fail bool
}

func (f *flakyChangeLog) Append(ctx context.Context, gameID string, a domain.Action) (ports.ChangeEntry, error) {
	if f.fail {
		return ports.ChangeEntry{}, errors.New("storage unavailable")
	}
	return f.ChangeLog.Append(ctx, gameID, a)
}

func TestService_UnrecordedGameRefusesActions(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse([]byte(serviceYAML))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Finish())
	changes := &flakyChangeLog{ChangeLog: memory.NewChangeLog(), fail: true}
	policy := domain.RulesetPolicy{Auction: domain.AuctionConfig{Reduction: domain.ReductionRule{Decrement: 5}}}
	svc := NewService(zap.NewNop(), cfg, policy, changes, nil)

	g, _, err := svc.NewGame("g1")
	assert.NoError(t, err)
	other, _, err := svc.NewGame("g2")
	assert.NoError(t, err)

	evs, err := svc.Submit(ctx, g, domain.Action{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 25})
	check.True(t, errors.Is(err, ErrNotRecorded))
	_, ok := findEvent(evs, EventBidPlaced)
	check.True(t, ok)
	check.Equal(t, "P2", g.Turn())

	changes.fail = false
	evs, err = svc.Submit(ctx, g, domain.Action{Kind: domain.ActionPass, Actor: "P2"})
	check.True(t, errors.Is(err, ErrNotRecorded))
	check.Equal(t, 0, len(evs))
	check.Equal(t, "P2", g.Turn())

	_, err = svc.Submit(ctx, other, domain.Action{Kind: domain.ActionBid, Actor: "P1", Item: "A", Amount: 25})
	assert.NoError(t, err)
	entries, err := changes.Entries(ctx, "g2")
	assert.NoError(t, err)
	check.Equal(t, 1, len(entries))
}
