package nakama

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"rails/internal/bot"
	"rails/internal/config"
	"rails/internal/domain"
)

const matchYAML = `
starting_cash: 300
bank_cash: 5000
packets:
  - items:
      - {id: A, price: 20}
      - {id: B, price: 40, company: PRR}
companies:
  - {id: PRR, par: 100, float_percent: 20}
resources:
  types:
    - {name: "2", count: 2, price: 80}
results:
  secret: test-secret
match:
  min_seats: 2
  max_seats: 3
  turn_duration_seconds: 30
  bot_auto_fill_delay_seconds: 2
`

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []string
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.recipients = append(msg.recipients, p.GetUserId())
	}
	md.sent = append(md.sent, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// last returns the most recent message with opCode.
func (md *mockDispatcher) last(opCode int64) (sentMessage, bool) {
	for i := len(md.sent) - 1; i >= 0; i-- {
		if md.sent[i].opCode == opCode {
			return md.sent[i], true
		}
	}
	return sentMessage{}, false
}

type fakePresence struct {
	runtime.Presence
	userID string
}

func (p fakePresence) GetUserId() string   { return p.userID }
func (p fakePresence) GetUsername() string { return "name-" + p.userID }

// fakeNakama keeps storage objects in memory and enforces object versions like Nakama does.
type fakeNakama struct {
	runtime.NakamaModule
	objects map[string]*api.StorageObject
	version int
	down    bool // every write fails
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{objects: make(map[string]*api.StorageObject)}
}

func (f *fakeNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	if f.down {
		return nil, errors.New("storage unavailable")
	}
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		key := w.Collection + "/" + w.Key
		current, exists := f.objects[key]
		switch {
		case w.Version == "*" && exists:
			return nil, fmt.Errorf("storage write rejected: %s already exists", key)
		case w.Version != "" && w.Version != "*" && (!exists || current.Version != w.Version):
			return nil, fmt.Errorf("storage write rejected: version check failed for %s", key)
		}
		f.version++
		obj := &api.StorageObject{Collection: w.Collection, Key: w.Key, Value: w.Value, Version: strconv.Itoa(f.version)}
		f.objects[key] = obj
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: obj.Version})
	}
	return acks, nil
}

func newTestModule(t *testing.T) *Module {
	t.Helper()
	cfg, err := config.Parse([]byte(matchYAML))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Finish())
	mod, err := NewModule(cfg, map[string]string{}, noopLogger{})
	assert.NoError(t, err)
	return mod
}

func newTestMatch(t *testing.T) (*matchHandler, *MatchState, *fakeNakama, *mockDispatcher) {
	t.Helper()
	handler := newMatchHandler(newTestModule(t))
	nk := newFakeNakama()
	state, rate, label := handler.MatchInit(context.Background(), noopLogger{}, nil, nk, nil)
	assert.NotNil(t, state)
	check.Equal(t, matchTickRate, rate)
	check.NotEqual(t, "", label)
	return handler, state.(*MatchState), nk, &mockDispatcher{}
}

func join(h *matchHandler, state *MatchState, d *mockDispatcher, users ...string) {
	var presences []runtime.Presence
	for _, u := range users {
		presences = append(presences, fakePresence{userID: u})
	}
	h.MatchJoin(context.Background(), noopLogger{}, nil, nil, d, state.Tick, state, presences)
}

func message(user string, op int64, data []byte) runtime.MatchData {
	return fakeMatchData{fakePresence: fakePresence{userID: user}, opCode: op, data: data}
}

type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (m fakeMatchData) GetOpCode() int64      { return m.opCode }
func (m fakeMatchData) GetData() []byte       { return m.data }
func (m fakeMatchData) GetReliable() bool     { return true }
func (m fakeMatchData) GetReceiveTime() int64 { return 0 }

func actionBytes(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	assert.NoError(t, err)
	b, err := proto.Marshal(s)
	assert.NoError(t, err)
	return b
}

func decodeStruct(t *testing.T, data []byte) *structpb.Struct {
	t.Helper()
	var s structpb.Struct
	assert.NoError(t, proto.Unmarshal(data, &s))
	return &s
}

func TestMatchState_SeatCounts(t *testing.T) {
	state := &MatchState{
		Seats: []string{"user-1", "bot-1", "", "user-2"},
		Bots:  map[string]*bot.Agent{"bot-1": {ID: "bot-1"}},
	}
	check.Equal(t, 1, state.GetOpenSeatsCount())
	check.Equal(t, 3, state.GetOccupiedSeatCount())
	check.Equal(t, 2, state.GetHumanPlayerCount())
	check.Equal(t, []string{"user-1", "bot-1", "user-2"}, state.participants())
	check.Equal(t, 3, state.seatOf("user-2"))
	check.Equal(t, -1, state.seatOf("nobody"))
}

func TestFindFirstHumanSeat(t *testing.T) {
	bots := map[string]*bot.Agent{"bot-1": {ID: "bot-1"}, "bot-2": {ID: "bot-2"}}
	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{name: "first seat human", seats: []string{"user-1", "bot-1", ""}, want: 0},
		{name: "human after bots", seats: []string{"bot-1", "", "user-1"}, want: 2},
		{name: "only bots", seats: []string{"bot-1", "bot-2", ""}, want: -1},
		{name: "empty", seats: []string{"", "", ""}, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &MatchState{Seats: tt.seats, Bots: bots}
			check.Equal(t, tt.want, state.findFirstHumanSeat())
		})
	}
}

func TestMatchJoin_AssignsSeatsAndOwner(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")

	check.Equal(t, []string{"user-1", "user-2", ""}, state.Seats)
	check.Equal(t, 0, state.OwnerSeat)
	check.True(t, d.labelUpdates > 0)

	msg, ok := d.last(OpMatchState)
	assert.True(t, ok)
	players := decodeStruct(t, msg.data).GetFields()["players"].GetListValue().GetValues()
	check.Equal(t, 2, len(players))
}

func TestMatchJoinAttempt(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2", "user-3")

	_, ok, reason := h.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, d, 0, state, fakePresence{userID: "user-4"}, nil)
	check.False(t, ok)
	check.Equal(t, "Match full", reason)

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)

	_, ok, _ = h.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, d, 1, state, fakePresence{userID: "user-2"}, nil)
	check.True(t, ok)
}

func TestMatchLeave(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")

	out := h.MatchLeave(context.Background(), noopLogger{}, nil, nil, d, 0, state, []runtime.Presence{fakePresence{userID: "user-1"}})
	assert.NotNil(t, out)
	check.Equal(t, []string{"", "user-2", ""}, state.Seats)
	check.Equal(t, 1, state.OwnerSeat)

	out = h.MatchLeave(context.Background(), noopLogger{}, nil, nil, d, 0, state, []runtime.Presence{fakePresence{userID: "user-2"}})
	check.Nil(t, out)
	check.Nil(t, state.Ruleset)
}

func TestMatchInit_RulesetPerMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.lua")
	assert.NoError(t, os.WriteFile(path, []byte(`function on_round_complete(view, proposed) return nil end`), 0o600))
	cfg, err := config.Parse([]byte(matchYAML))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Finish())
	cfg.Ruleset.Name, cfg.Ruleset.Script = "lua", path
	mod, err := NewModule(cfg, map[string]string{}, noopLogger{})
	assert.NoError(t, err)
	h := newMatchHandler(mod)

	var states []*MatchState
	for range 2 {
		state, _, _ := h.MatchInit(context.Background(), noopLogger{}, nil, newFakeNakama(), nil)
		assert.NotNil(t, state)
		ms := state.(*MatchState)
		assert.NotNil(t, ms.Ruleset)
		check.Equal(t, "lua", ms.Ruleset.Policy.Name)
		states = append(states, ms)
	}
	check.True(t, states[0].Ruleset != states[1].Ruleset)

	h.MatchTerminate(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 0, states[0], 0)
	check.Nil(t, states[0].Ruleset)
	check.NotNil(t, states[1].Ruleset)
	// terminating twice is harmless
	h.MatchTerminate(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 0, states[0], 0)
}

func TestNewModule_BadRulesetScript(t *testing.T) {
	cfg, err := config.Parse([]byte(matchYAML))
	assert.NoError(t, err)
	assert.NoError(t, cfg.Finish())
	cfg.Ruleset.Name, cfg.Ruleset.Script = "lua", filepath.Join(t.TempDir(), "missing.lua")
	_, err = NewModule(cfg, map[string]string{}, noopLogger{})
	check.Error(t, err)
}

func TestStartGame(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-2", OpStartGame, nil)})
	check.Nil(t, state.Game)

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 2, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)
	check.Equal(t, []string{"user-1", "user-2"}, state.Game.Participants())
	check.Equal(t, domain.RoundAuction, state.Game.Round().Kind)
	check.True(t, strings.Contains(d.lastLabel, matchLabelPlaying))

	msg, ok := d.last(OpLegalActions)
	assert.True(t, ok)
	check.Equal(t, []string{"user-1"}, msg.recipients)
	actions := decodeStruct(t, msg.data).GetFields()["actions"].GetListValue().GetValues()
	check.True(t, len(actions) > 0)

	snapshot, ok := d.last(OpMatchState)
	assert.True(t, ok)
	game := decodeStruct(t, snapshot.data).GetFields()["game"].GetStructValue()
	assert.NotNil(t, game)
	check.Equal(t, state.Game.ID(), game.GetFields()["GameID"].GetStringValue())
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1")

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	check.Nil(t, state.Game)
	msg, ok := d.last(OpGameError)
	assert.True(t, ok)
	check.Equal(t, "not enough players", decodeStruct(t, msg.data).GetFields()["message"].GetStringValue())
}

func TestSubmitAction(t *testing.T) {
	h, state, nk, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)

	wrongTurn := actionBytes(t, map[string]any{"kind": string(domain.ActionBid), "item": "A", "amount": 20})
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 2, state, []runtime.MatchData{message("user-2", OpSubmitAction, wrongTurn)})
	msg, ok := d.last(OpGameError)
	assert.True(t, ok)
	check.Equal(t, []string{"user-2"}, msg.recipients)
	check.Equal(t, string(domain.KindWrongTurnHolder), decodeStruct(t, msg.data).GetFields()["kind"].GetStringValue())

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 3, state, []runtime.MatchData{message("user-1", OpSubmitAction, wrongTurn)})
	_, ok = d.last(OpGameEvent)
	check.True(t, ok)

	entries, err := NewStorageChangeLog(nk).Entries(context.Background(), state.Game.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
	check.Equal(t, "user-1", entries[0].Action.Actor)
	check.Equal(t, int64(20), entries[0].Action.Amount)
}

func TestSubmitAction_UnrecordedActionAbandonsGame(t *testing.T) {
	h, state, nk, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)

	nk.down = true
	bid := actionBytes(t, map[string]any{"kind": string(domain.ActionBid), "item": "A", "amount": 20})
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 2, state, []runtime.MatchData{message("user-1", OpSubmitAction, bid)})

	_, ok := d.last(OpGameEvent)
	check.True(t, ok)
	msg, ok := d.last(OpGameError)
	assert.True(t, ok)
	check.Equal(t, float64(errorCodeInternal), decodeStruct(t, msg.data).GetFields()["code"].GetNumberValue())
	check.Nil(t, state.Game)
	check.Equal(t, "", state.TurnHolder)
	check.True(t, strings.Contains(d.lastLabel, matchLabelLobby))
}

func TestSubmitAction_BadPayload(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})

	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 2, state, []runtime.MatchData{message("user-1", OpSubmitAction, []byte{0xff, 0x01})})
	msg, ok := d.last(OpGameError)
	assert.True(t, ok)
	check.Equal(t, float64(errorCodeBadRequest), decodeStruct(t, msg.data).GetFields()["code"].GetNumberValue())
}

func TestProcessBots_FillsLobbyForSoloHuman(t *testing.T) {
	h, state, _, d := newTestMatch(t)
	state.BotsEnabled = true
	join(h, state, d, "user-1")

	state.Tick = 10
	h.processBots(context.Background(), state, d, noopLogger{})
	check.Equal(t, int64(10), state.LastSinglePlayerTick)
	check.Equal(t, 0, len(state.Bots))

	state.Tick = 12
	h.processBots(context.Background(), state, d, noopLogger{})
	check.Equal(t, 2, len(state.Bots))
	check.Equal(t, 0, state.GetOpenSeatsCount())
	check.Equal(t, int64(0), state.LastSinglePlayerTick)
	check.Equal(t, 0, state.OwnerSeat)
}

func TestProcessBots_PlaysBotTurn(t *testing.T) {
	h, state, nk, d := newTestMatch(t)
	state.BotsEnabled = true
	state.BotMinDelay, state.BotMaxDelay = 1, 1
	join(h, state, d, "user-1")
	state.Seats[1] = "bot-1"
	state.Bots["bot-1"] = &bot.Agent{ID: "bot-1", Strategy: &bot.PassiveBot{}}
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)

	bid := actionBytes(t, map[string]any{"kind": string(domain.ActionBid), "item": "A", "amount": 20})
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 2, state, []runtime.MatchData{message("user-1", OpSubmitAction, bid)})
	assert.Equal(t, "bot-1", state.Game.Turn())
	check.Equal(t, int64(3), state.BotWaitUntil)

	state.Tick = 3
	h.processBots(context.Background(), state, d, noopLogger{})
	entries, err := NewStorageChangeLog(nk).Entries(context.Background(), state.Game.ID())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(entries))
	check.Equal(t, "bot-1", entries[1].Action.Actor)
}

func TestTurnTimer_PlaysPassiveMoveForIdleHuman(t *testing.T) {
	h, state, nk, d := newTestMatch(t)
	join(h, state, d, "user-1", "user-2")
	h.MatchLoop(context.Background(), noopLogger{}, nil, nil, d, 1, state, []runtime.MatchData{message("user-1", OpStartGame, nil)})
	assert.NotNil(t, state.Game)
	check.Equal(t, "user-1", state.TurnHolder)

	state.Tick = state.TurnDeadline - 1
	h.processTurnTimer(context.Background(), state, d, noopLogger{})
	_, err := NewStorageChangeLog(nk).Entries(context.Background(), state.Game.ID())
	check.Error(t, err)

	state.Tick = state.TurnDeadline
	h.processTurnTimer(context.Background(), state, d, noopLogger{})
	entries, err := NewStorageChangeLog(nk).Entries(context.Background(), state.Game.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
	check.Equal(t, "user-1", entries[0].Action.Actor)
}
