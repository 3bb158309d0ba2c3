package nakama

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"rails/internal/app"
	"rails/internal/bot"
	"rails/internal/domain"
	"rails/internal/ruleset"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats     []string                    `json:"seats"`      // user IDs, empty string means seat is empty
	OwnerSeat int                         `json:"owner_seat"` // seat index of the match owner
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging
	Service   *app.Service                `json:"-"`
	Ruleset   *ruleset.Ruleset            `json:"-"` // owned by this match, closed when it ends
	Game      *app.Game                   `json:"-"` // nil while in the lobby
	Result    *app.GameResult             `json:"-"` // outcome of the last finished game

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`
	BotMaxDelay          int                   `json:"bot_max_delay"`
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil         int64                 `json:"bot_wait_until"`
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"`
	Bots                 map[string]*bot.Agent `json:"-"`
	Roster               *bot.Roster           `json:"-"`

	// TurnDuration is how long a human may take before a passive move is made for them.
	TurnDuration int    `json:"turn_duration"`
	TurnHolder   string `json:"turn_holder"`
	TurnDeadline int64  `json:"turn_deadline"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !ms.isBot(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) isBot(userID string) bool {
	_, ok := ms.Bots[userID]
	return ok
}

// participants lists the occupied seats in seat order.
func (ms *MatchState) participants() []string {
	var out []string
	for _, seat := range ms.Seats {
		if seat != "" {
			out = append(out, seat)
		}
	}
	return out
}

func (ms *MatchState) agents() []*bot.Agent {
	out := make([]*bot.Agent, 0, len(ms.Bots))
	for _, seat := range ms.Seats {
		if a, ok := ms.Bots[seat]; ok {
			out = append(out, a)
		}
	}
	return out
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func (ms *MatchState) findFirstHumanSeat() int {
	for i, userID := range ms.Seats {
		if userID != "" && !ms.isBot(userID) {
			return i
		}
	}
	return -1
}

func (ms *MatchState) isHumanSeat(i int) bool {
	if i < 0 || i >= len(ms.Seats) {
		return false
	}
	return ms.Seats[i] != "" && !ms.isBot(ms.Seats[i])
}

// release closes the match's ruleset. Safe to call more than once.
func (ms *MatchState) release() {
	if ms.Ruleset != nil {
		ms.Ruleset.Close()
		ms.Ruleset = nil
	}
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

type matchHandler struct {
	mod *Module
}

func newMatchHandler(mod *Module) *matchHandler {
	return &matchHandler{mod: mod}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cfg := mh.mod.Config
	rs, err := mh.mod.LoadRuleset(logger)
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}
	service := app.NewService(NewZapLogger(logger, mh.mod.Level), cfg, rs.Policy, NewStorageChangeLog(nk), mh.mod.Signer)
	state := &MatchState{
		Seats:            make([]string, cfg.Match.MaxSeats),
		OwnerSeat:        -1,
		Tick:             time.Now().Unix(),
		Presences:        make(map[string]runtime.Presence),
		Service:          service,
		Ruleset:          rs,
		BotsEnabled:      mh.mod.BotsEnabled,
		BotMinDelay:      mh.mod.BotMinDelay,
		BotMaxDelay:      mh.mod.BotMaxDelay,
		BotAutoFillDelay: cfg.Match.BotAutoFillDelaySeconds,
		Bots:             make(map[string]*bot.Agent),
		Roster:           mh.mod.Roster,
		TurnDuration:     cfg.Match.TurnDurationSeconds,
	}

	label, err := labelJSON(state.GetOpenSeatsCount(), matchLabelLobby)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		rs.Close()
		return nil, 0, ""
	}
	return state, matchTickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Participants of a running game may reconnect.
	if matchState.Game != nil {
		if matchState.seatOf(presence.GetUserId()) >= 0 {
			return state, true, ""
		}
		return state, false, "Game in progress"
	}

	// Allow join if there is an empty seat or a bot to replace.
	if matchState.GetOpenSeatsCount() <= 0 && len(matchState.Bots) == 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if matchState.seatOf(p.GetUserId()) >= 0 {
			continue
		}

		// Assign seat: empty seats first, then bots (lobby only).
		assigned := false
		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = true
				break
			}
		}
		if !assigned && matchState.Game == nil {
			for i, seatUserID := range matchState.Seats {
				if matchState.isBot(seatUserID) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserID, p.GetUserId(), i)
					delete(matchState.Bots, seatUserID)
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}
		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", p.GetUserId())
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !matchState.isHumanSeat(matchState.OwnerSeat) {
		matchState.OwnerSeat = matchState.findFirstHumanSeat()
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)
	if matchState.Game != nil {
		mh.notifyTurn(matchState, dispatcher, logger)
	}
	return matchState
}

// MatchLeave is called when one or more players leave the match. During a game the seat is kept;
// the leaver's turns time out into passive moves.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if matchState.Game != nil {
			continue
		}
		if i := matchState.seatOf(p.GetUserId()); i >= 0 {
			matchState.Seats[i] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		matchState.release()
		return nil
	}

	if !matchState.isHumanSeat(matchState.OwnerSeat) {
		matchState.OwnerSeat = matchState.findFirstHumanSeat()
	}
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpSubmitAction:
			mh.handleSubmitAction(ctx, matchState, dispatcher, logger, msg)
		case OpRequestActions:
			mh.sendLegalActions(matchState, dispatcher, logger, msg.GetUserId())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}
	mh.processTurnTimer(ctx, matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)
	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if state.Game != nil {
		mh.sendError(state, dispatcher, logger, senderID, errorCodeRejected, "", "game already running")
		return
	}
	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		return
	}
	if n := state.GetOccupiedSeatCount(); n < mh.mod.Config.Match.MinSeats {
		logger.Warn("StartGame: Cannot start with %d players. Need at least %d.", n, mh.mod.Config.Match.MinSeats)
		mh.sendError(state, dispatcher, logger, senderID, errorCodeRejected, "", "not enough players")
		return
	}

	game, events, err := state.Service.NewGameWith("", state.participants())
	if err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, errorCodeRejected, "", err.Error())
		return
	}
	state.Game = game
	state.Result = nil

	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastMatchState(state, dispatcher, logger)
	mh.afterEvents(ctx, state, dispatcher, logger, events)
	logger.Info("StartGame: Game %s started with %d players.", game.ID(), len(state.participants()))
}

func (mh *matchHandler) handleSubmitAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Game == nil {
		logger.Warn("handleSubmitAction: Game not started.")
		mh.sendError(state, dispatcher, logger, senderID, errorCodeRejected, "", "game not started")
		return
	}

	action, err := actionFromProto(msg.GetData(), senderID)
	if err != nil {
		logger.Warn("handleSubmitAction: Bad payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCodeBadRequest, "", err.Error())
		return
	}
	mh.submit(ctx, state, dispatcher, logger, action)
}

// submit applies an action for anyone at the table, human, bot or timer.
func (mh *matchHandler) submit(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, action domain.Action) {
	events, err := state.Service.Submit(ctx, state.Game, action)
	if err != nil && len(events) == 0 {
		kind, _ := domain.KindOf(err)
		logger.Warn("submit: %s by %s rejected: %v", action.Kind, action.Actor, err)
		mh.sendError(state, dispatcher, logger, action.Actor, errorCodeRejected, string(kind), err.Error())
		return
	}
	mh.afterEvents(ctx, state, dispatcher, logger, events)
	if err != nil {
		logger.Error("submit: %v", err)
		mh.abandonGame(state, dispatcher, logger, err.Error())
	}
}

// abandonGame drops a game that can no longer be recorded and returns the table to the lobby.
func (mh *matchHandler) abandonGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, reason string) {
	if state.Game == nil {
		return
	}
	logger.Warn("Game %s abandoned: %s", state.Game.ID(), reason)
	for _, p := range state.participants() {
		mh.sendError(state, dispatcher, logger, p, errorCodeInternal, "", reason)
	}
	state.Game = nil
	state.TurnHolder = ""
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastMatchState(state, dispatcher, logger)
}

// afterEvents broadcasts events, feeds them to bots and prompts whoever acts next.
func (mh *matchHandler) afterEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	bot.Broadcast(state.agents(), events)

	if state.Game != nil && state.Game.Over() {
		if res, ok := state.Game.Result(); ok {
			state.Result = &res
			logger.Info("Game %s ended: %s", state.Game.ID(), res.Reason)
		}
		state.Game = nil
		state.TurnHolder = ""
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastMatchState(state, dispatcher, logger)
		return
	}
	mh.notifyTurn(state, dispatcher, logger)
}

// notifyTurn sends legal actions to the participant to act and restarts the turn timer.
func (mh *matchHandler) notifyTurn(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game == nil {
		return
	}
	turn := state.Game.Turn()
	if turn != state.TurnHolder {
		state.TurnHolder = turn
		state.TurnDeadline = state.Tick + int64(state.TurnDuration)
	}
	if turn != "" && !state.isBot(turn) {
		mh.sendLegalActions(state, dispatcher, logger, turn)
	}
}

func (mh *matchHandler) sendLegalActions(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok || state.Game == nil {
		return
	}
	var mine []domain.Action
	for _, a := range state.Game.LegalActions() {
		if a.Actor == userID {
			mine = append(mine, a)
		}
	}
	bytes, err := actionsToProto(mine)
	if err != nil {
		logger.Error("Failed to marshal legal actions: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpLegalActions, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill lobby with bots if there's only one human player after delay
	if state.Game == nil {
		if state.GetHumanPlayerCount() != 1 {
			state.LastSinglePlayerTick = 0
			return
		}
		if state.LastSinglePlayerTick == 0 {
			state.LastSinglePlayerTick = state.Tick
			logger.Debug("processBots: Single player detected, starting auto-fill timer.")
		}
		if state.Tick-state.LastSinglePlayerTick < int64(state.BotAutoFillDelay) {
			return
		}
		if mh.fillWithBots(state, logger) {
			mh.updateLabel(state, dispatcher, logger)
			mh.broadcastMatchState(state, dispatcher, logger)
		}
		state.LastSinglePlayerTick = 0
		return
	}

	// 2. Handle bot turns in-game
	turn := state.Game.Turn()
	agent, ok := state.Bots[turn]
	if !ok {
		state.BotWaitUntil = 0
		return
	}
	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s will act at tick %d (current %d)", turn, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	action, ok, err := agent.Play(state.Game)
	if err != nil {
		logger.Error("processBots: Bot %s failed to choose a move: %v", turn, err)
		return
	}
	if ok {
		mh.submit(ctx, state, dispatcher, logger, action)
	}
}

func (mh *matchHandler) fillWithBots(state *MatchState, logger runtime.Logger) bool {
	added := false
	for i, seat := range state.Seats {
		if seat != "" {
			continue
		}
		identity := state.Roster.Get(i)
		if state.seatOf(identity.UserID) >= 0 {
			continue
		}
		brain, err := bot.NewBrain(identity.Level, identity.UserID)
		if err != nil {
			logger.Error("Failed to create bot agent for %s: %v", identity.UserID, err)
			continue
		}
		state.Seats[i] = identity.UserID
		state.Bots[identity.UserID] = &bot.Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: brain}
		logger.Info("processBots: Added bot %s (%s) to seat %d", identity.Username, identity.UserID, i)
		added = true
	}
	return added
}

// processTurnTimer makes a passive move for a human who let the turn run out.
func (mh *matchHandler) processTurnTimer(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game == nil || state.TurnDuration <= 0 || state.TurnHolder == "" || state.isBot(state.TurnHolder) {
		return
	}
	if state.Tick < state.TurnDeadline {
		return
	}
	stand := &bot.Agent{ID: state.TurnHolder, Strategy: &bot.PassiveBot{}}
	action, ok, err := stand.Play(state.Game)
	if err != nil || !ok {
		return
	}
	logger.Info("Turn timer expired for %s, playing %s.", state.TurnHolder, action.Kind)
	state.TurnDeadline = state.Tick + int64(state.TurnDuration)
	mh.submit(ctx, state, dispatcher, logger, action)
}

func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	players := &structpb.ListValue{}
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}
		displayName := userID
		if p, ok := state.Presences[userID]; ok {
			displayName = p.GetUsername()
		} else if a, ok := state.Bots[userID]; ok && a.Name != "" {
			displayName = a.Name
		}
		player := map[string]*structpb.Value{
			"user_id":      structpb.NewStringValue(userID),
			"seat":         structpb.NewNumberValue(float64(i)),
			"is_owner":     structpb.NewBoolValue(i == state.OwnerSeat),
			"is_bot":       structpb.NewBoolValue(state.isBot(userID)),
			"display_name": structpb.NewStringValue(displayName),
		}
		if state.Game != nil {
			player["cash"] = structpb.NewNumberValue(float64(state.Game.FreeCash(userID)))
		}
		players.Values = append(players.Values, structpb.NewStructValue(&structpb.Struct{Fields: player}))
	}

	fields := map[string]*structpb.Value{
		"owner_seat": structpb.NewNumberValue(float64(state.OwnerSeat)),
		"tick":       structpb.NewNumberValue(float64(state.Tick)),
		"players":    structpb.NewListValue(players),
	}
	if state.Game != nil {
		snap, err := toStruct(state.Game.Snapshot())
		if err != nil {
			logger.Error("Failed to encode snapshot: %v", err)
		} else {
			fields["game"] = structpb.NewStructValue(snap)
		}
	}
	if state.Result != nil {
		if res, err := toStruct(state.Result); err == nil {
			fields["result"] = structpb.NewStructValue(res)
		}
	}

	bytes, err := proto.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		logger.Error("Failed to marshal match state: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpMatchState, bytes, nil, nil, true)
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	bytes, err := eventToProto(ev)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		// Intended recipients that are not connected (e.g. bots) must not turn into a broadcast.
		if len(recipients) == 0 {
			return
		}
	}
	dispatcher.BroadcastMessage(OpGameEvent, bytes, recipients, nil, true)
}

// sendError sends a game error to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, kind, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	bytes, err := errorToProto(code, kind, message)
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := matchLabelLobby
	if state.Game != nil {
		phase = matchLabelPlaying
	}
	label, err := labelJSON(state.GetOpenSeatsCount(), phase)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated (grace %ds)", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		matchState.release()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
