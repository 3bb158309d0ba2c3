package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rails/internal/domain"
)

var (
	ErrTooFewPlayers        = errors.New("not enough participants to start")
	ErrTooManyPlayers       = errors.New("too many participants")
	ErrDuplicateParticipant = errors.New("participant listed twice")
	ErrUnknownParticipant   = errors.New("participant not found")
	ErrNotStarted           = errors.New("game not started")
	ErrAlreadyStarted       = errors.New("game already started")
)

// GameResult is the outcome of a finished game.
type GameResult struct {
	Reason    string
	Standings []Standing
	Token     string
}

// Game drives one game: it routes submitted actions to the active round, keeps the collaborators
// in step with the domain state machines and collects the events every accepted action emits.
type Game struct {
	ctx    GameContext
	setup  Setup
	signer *ResultSigner

	priority *domain.PriorityTracker
	auction  *domain.AuctionEngine
	gate     *domain.ResourceGate
	seq      *domain.RoundSequencer

	started bool
	events  []Event

	trading   tradingState
	operating operatingState
	forced    forcedSale
	exchange  exchangeState

	bankrupt  map[string]bool
	reordered bool
	result    *GameResult
}

// NewGame builds a game over the collaborators in ctx. signer may be nil, in which case the final
// standings are not signed.
func NewGame(ctx GameContext, setup Setup, signer *ResultSigner) (*Game, error) {
	if len(setup.Participants) < MinParticipants {
		return nil, ErrTooFewPlayers
	}
	if len(setup.Participants) > MaxParticipants {
		return nil, ErrTooManyPlayers
	}
	seen := make(map[string]bool, len(setup.Participants))
	for _, p := range setup.Participants {
		if seen[p] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = true
	}
	if ctx.Logger == nil {
		ctx.Logger = zap.NewNop()
	}

	priority := domain.NewPriorityTracker(setup.Participants)
	gate := domain.NewResourceGate(setup.Resources, ctx.Resources, setup.HolderLimit, setup.OperatingRounds)
	counters := domain.Counters{FinalBound: setup.FinalBound, HasFinalExchange: setup.FinalExchange}

	g := &Game{
		ctx:      ctx,
		setup:    setup,
		signer:   signer,
		priority: priority,
		auction:  domain.NewAuctionEngine(setup.Policy.Auction, ctx.Ledger, priority, setup.Items),
		gate:     gate,
		seq:      domain.NewRoundSequencer(setup.Policy, priority, gate, ctx.Ledger, counters),
		bankrupt: make(map[string]bool),
	}
	g.auction.SkipWhen(g.isBankrupt)
	return g, nil
}

// ID returns the game id.
func (g *Game) ID() string { return g.ctx.ID }

// Start enters the first round.
func (g *Game) Start() ([]Event, error) {
	if g.started {
		return nil, ErrAlreadyStarted
	}
	g.started = true
	g.events = nil
	g.emit(EventGameStarted, GameStartedPayload{
		GameID:       g.ctx.ID,
		Participants: g.priority.Order(),
		Ruleset:      g.setup.Policy.Name,
	})
	g.seq.Start(g.packetsOpen())
	g.enterRound("")
	return g.flush(), nil
}

// Submit validates and applies one action. A rejected action returns a *domain.RuleError and
// leaves the game unchanged.
func (g *Game) Submit(a domain.Action) ([]Event, error) {
	if !g.started {
		return nil, ErrNotStarted
	}
	g.events = nil
	round := g.seq.Round()

	var err error
	if p, ok := g.seq.Pending(); ok {
		err = g.submitPending(p, a)
	} else {
		switch round.Kind {
		case domain.RoundAuction:
			err = g.submitAuction(a)
		case domain.RoundTrading:
			err = g.submitTrading(a)
		case domain.RoundOperating:
			err = g.submitOperating(a)
		case domain.RoundFinalExchange:
			err = g.submitFinalExchange(a)
		default:
			err = domain.Reject(domain.KindWrongRoundOrStep, "no action is accepted during %s", round.Kind)
		}
	}

	fields := []zap.Field{
		zap.Stringer("round", round),
		zap.String("actor", a.Actor),
		zap.String("kind", string(a.Kind)),
	}
	if err != nil {
		g.events = nil
		g.ctx.Logger.Debug("action rejected", append(fields, zap.Error(err))...)
		return nil, err
	}
	g.ctx.Logger.Debug("action accepted", fields...)
	return g.flush(), nil
}

func (g *Game) submitPending(p domain.MandatoryAction, a domain.Action) error {
	switch p.Kind {
	case domain.ActionSellShare:
		return g.submitForcedSale(p, a)
	case domain.ActionDiscardResource:
		return g.submitDiscard(p, a)
	default:
		return domain.Reject(domain.KindWrongRoundOrStep, "unexpected pending action %s", p.Kind)
	}
}

// LegalActions lists what the participant to act may do. A pending mandatory action replaces the
// round's ordinary actions.
func (g *Game) LegalActions() []domain.Action {
	if !g.started {
		return nil
	}
	if p, ok := g.seq.Pending(); ok {
		switch p.Kind {
		case domain.ActionSellShare:
			return g.forcedSaleActions(p)
		case domain.ActionDiscardResource:
			return g.discardActions(p)
		}
		return nil
	}
	switch g.seq.Round().Kind {
	case domain.RoundAuction:
		return g.auction.LegalActions()
	case domain.RoundTrading:
		return g.tradingActions()
	case domain.RoundOperating:
		return g.operatingActions()
	case domain.RoundFinalExchange:
		return g.finalExchangeActions()
	}
	return nil
}

// Turn returns the participant expected to act next, or "" once the game is over.
func (g *Game) Turn() string {
	if p, ok := g.seq.Pending(); ok {
		return p.Actor
	}
	switch g.seq.Round().Kind {
	case domain.RoundAuction:
		return g.auction.State().Turn
	case domain.RoundTrading:
		return g.trading.turn
	case domain.RoundOperating:
		return g.presidentOf(g.company())
	case domain.RoundFinalExchange:
		return g.exchange.turn
	}
	return ""
}

// Round returns the active round.
func (g *Game) Round() domain.RoundDescriptor { return g.seq.Round() }

// Over reports whether the game reached GameOver.
func (g *Game) Over() bool { return g.result != nil }

// Result returns the final result once the game is over.
func (g *Game) Result() (GameResult, bool) {
	if g.result == nil {
		return GameResult{}, false
	}
	return *g.result, true
}

// Participants returns the current participant order.
func (g *Game) Participants() []string { return g.priority.Order() }

// FreeCash returns the cash a holder can spend, blocked bids excluded.
func (g *Game) FreeCash(holder string) int64 {
	return g.ctx.Ledger.Cash(holder) - g.ctx.Ledger.Blocked(holder)
}

// Item returns an auctioned item.
func (g *Game) Item(id string) (domain.Item, bool) { return g.auction.Item(id) }

// Context returns the collaborators the game runs over.
func (g *Game) Context() GameContext { return g.ctx }

// Snapshot is a read-only view of the game for clients and bots.
type Snapshot struct {
	GameID      string
	Round       domain.RoundDescriptor
	Turn        string
	Priority    string
	Order       []string
	Company     string
	Pending     *domain.MandatoryAction
	Auction     domain.AuctionState
	Items       []domain.Item
	Permissions []domain.Token
	Available   []string
	Counters    domain.Counters
	Bankrupt    []string
	Result      *GameResult
}

// Snapshot captures the current state.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		GameID:      g.ctx.ID,
		Round:       g.seq.Round(),
		Turn:        g.Turn(),
		Priority:    g.priority.Holder(),
		Order:       g.priority.Order(),
		Auction:     g.auction.State(),
		Items:       g.auction.Items(),
		Permissions: g.gate.Permissions().Sorted(),
		Available:   g.gate.AvailableTypes(),
		Counters:    g.seq.Counters(),
	}
	if s.Round.Kind == domain.RoundOperating {
		s.Company = g.company()
	}
	if p, ok := g.seq.Pending(); ok {
		s.Pending = &p
	}
	for _, p := range g.priority.Order() {
		if g.bankrupt[p] {
			s.Bankrupt = append(s.Bankrupt, p)
		}
	}
	if g.result != nil {
		r := *g.result
		s.Result = &r
	}
	return s
}

func (g *Game) enterRound(reason string) {
	round := g.seq.Round()
	g.ctx.Logger.Info("round started", zap.Stringer("round", round), zap.Int("number", round.Number))
	switch round.Kind {
	case domain.RoundAuction:
		g.startAuction()
	case domain.RoundTrading:
		g.startTrading()
	case domain.RoundOperating:
		g.startOperating()
	case domain.RoundFinalExchange:
		g.startFinalExchange()
	case domain.RoundGameOver:
		g.finish(reason)
	}
}

// complete ends the active round and enters whatever the sequencer picks next.
func (g *Game) complete() {
	tr := g.seq.Complete(g.packetsOpen())
	g.emit(EventRoundCompleted, RoundCompletedPayload{From: tr.From, Next: tr.Next, Reason: tr.Reason})
	g.ctx.Logger.Info("round completed",
		zap.String("from", string(tr.From)),
		zap.String("next", string(tr.Next)),
		zap.String("reason", tr.Reason),
	)
	g.enterRound(tr.Reason)
}

func (g *Game) endGame(reason string) {
	g.seq.ClearPending()
	tr := g.seq.EndGame(reason)
	g.emit(EventRoundCompleted, RoundCompletedPayload{From: tr.From, Next: tr.Next, Reason: tr.Reason})
	g.enterRound(reason)
}

// packetsOpen is 1 while a packet can be auctioned with the permissions granted so far.
func (g *Game) packetsOpen() int {
	if _, ok := g.auction.NextPacket(g.gate.Permissions()); ok {
		return 1
	}
	return 0
}

func (g *Game) isBankrupt(id string) bool { return g.bankrupt[id] }

// firstActive returns from, or the first solvent participant after it.
func (g *Game) firstActive(from string) (string, bool) {
	if !g.bankrupt[from] {
		return from, true
	}
	return g.priority.NextFrom(from, g.isBankrupt)
}

func (g *Game) activeCount() int {
	n := 0
	for _, p := range g.priority.Order() {
		if !g.bankrupt[p] {
			n++
		}
	}
	return n
}

func (g *Game) emit(kind EventKind, payload any, recipients ...string) {
	g.events = append(g.events, Event{Kind: kind, Payload: payload, Recipients: recipients})
}

func (g *Game) flush() []Event {
	out := g.events
	g.events = nil
	return out
}
