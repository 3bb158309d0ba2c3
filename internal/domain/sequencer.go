package domain

// Signal is what the active round reports when control leaves it.
type Signal int

const (
	// SignalComplete is the normal end of a round.
	SignalComplete Signal = iota
	// SignalShortfall means a mandatory payment could not be met from cash.
	SignalShortfall
	// SignalShortfallResolved means the forced sale covered the payment or ended in bankruptcy.
	SignalShortfallResolved
	// SignalEndGame ends the game immediately.
	SignalEndGame
)

func (s Signal) String() string {
	switch s {
	case SignalComplete:
		return "complete"
	case SignalShortfall:
		return "shortfall"
	case SignalShortfallResolved:
		return "shortfall_resolved"
	case SignalEndGame:
		return "end_game"
	default:
		return "unknown"
	}
}

// Counters is the persistent state the transition table reads.
type Counters struct {
	PacketsRemaining int // open packets with unsold items

	OperatingTarget int
	OperatingRun    int
	PrematureExit   bool

	FinalSequenceStarted bool
	FinalSequence        int // operating rounds completed since the final sequence started
	FinalBound           int
	HasFinalExchange     bool

	Interrupted RoundKind // round a forced share sale returns to
}

// Transition is the decision taken when a round hands back control.
type Transition struct {
	From     RoundKind
	Next     RoundKind
	Counters Counters
	Reason   string
}

// InitialRound is Auction while a packet is open, else Trading.
func InitialRound(c Counters) RoundKind {
	if c.PacketsRemaining > 0 {
		return RoundAuction
	}
	return RoundTrading
}

// NextRound is the default transition table. It is pure: the result depends only on its inputs.
func NextRound(current RoundKind, signal Signal, c Counters) Transition {
	t := Transition{From: current, Counters: c}
	switch signal {
	case SignalEndGame:
		t.Next, t.Reason = RoundGameOver, "game ended"
		return t
	case SignalShortfall:
		t.Next, t.Reason = RoundForcedShareSale, "payment shortfall"
		t.Counters.Interrupted = current
		return t
	case SignalShortfallResolved:
		invariant(current == RoundForcedShareSale, "shortfall resolved outside a forced sale")
		t.Next, t.Reason = c.Interrupted, "shortfall resolved"
		t.Counters.Interrupted = ""
		return t
	}

	switch current {
	case RoundAuction:
		if c.PacketsRemaining > 0 {
			t.Next, t.Reason = RoundAuction, "next packet"
		} else {
			t.Next, t.Reason = RoundTrading, "auction finished"
		}
	case RoundTrading:
		t.Next, t.Reason = RoundOperating, "trading finished"
		t.Counters.OperatingRun = 0
		t.Counters.PrematureExit = false
	case RoundOperating:
		t.Counters.OperatingRun++
		if c.FinalSequenceStarted {
			t.Counters.FinalSequence++
			if t.Counters.FinalSequence > c.FinalBound {
				if c.HasFinalExchange {
					t.Next, t.Reason = RoundFinalExchange, "final sequence over"
				} else {
					t.Next, t.Reason = RoundGameOver, "final sequence over"
				}
				return t
			}
		}
		if t.Counters.OperatingRun < c.OperatingTarget && !c.PrematureExit {
			t.Next, t.Reason = RoundOperating, "next operating round"
			return t
		}
		t.Counters.PrematureExit = false
		if c.PacketsRemaining > 0 {
			t.Next, t.Reason = RoundAuction, "packet opened"
		} else {
			t.Next, t.Reason = RoundTrading, "operating sequence finished"
		}
		if c.PrematureExit {
			t.Reason = "operating sequence cut short"
		}
	case RoundFinalExchange:
		t.Next, t.Reason = RoundGameOver, "final exchange finished"
	case RoundForcedShareSale:
		t.Next, t.Reason = c.Interrupted, "forced sale finished"
		t.Counters.Interrupted = ""
	case RoundGameOver:
		t.Next, t.Reason = RoundGameOver, "game over"
	default:
		invariant(false, "unknown round %q", current)
	}
	return t
}

// BankView reports the cash left in the bank.
type BankView interface {
	BankCash() int64
}

// RoundSequencer owns the active round, the counters and the priority pointer. The policy
// callbacks may replace any transition the default table proposes.
type RoundSequencer struct {
	policy   RulesetPolicy
	priority *PriorityTracker
	gate     *ResourceGate
	bank     BankView

	round    RoundDescriptor
	counters Counters
	pending  *MandatoryAction
}

// NewRoundSequencer builds an idle sequencer; Start picks the first round.
func NewRoundSequencer(policy RulesetPolicy, priority *PriorityTracker, gate *ResourceGate, bank BankView, c Counters) *RoundSequencer {
	invariant(priority != nil && gate != nil, "sequencer needs a priority tracker and a resource gate")
	return &RoundSequencer{policy: policy, priority: priority, gate: gate, bank: bank, counters: c}
}

// Start enters the initial round.
func (s *RoundSequencer) Start(packetsRemaining int) RoundDescriptor {
	s.counters.PacketsRemaining = packetsRemaining
	s.counters.OperatingTarget = s.gate.OperatingRounds()
	s.enter(InitialRound(s.counters))
	return s.round
}

// Round returns the active round.
func (s *RoundSequencer) Round() RoundDescriptor { return s.round }

// Counters returns the current counters.
func (s *RoundSequencer) Counters() Counters { return s.counters }

// Priority returns the priority tracker the sequencer owns.
func (s *RoundSequencer) Priority() *PriorityTracker { return s.priority }

// Policy returns the injected ruleset.
func (s *RoundSequencer) Policy() RulesetPolicy { return s.policy }

// View builds the read-only context for policy callbacks.
func (s *RoundSequencer) View() PolicyView {
	var bank int64
	if s.bank != nil {
		bank = s.bank.BankCash()
	}
	return PolicyView{
		Round:       s.round,
		Counters:    s.counters,
		Permissions: s.gate.Permissions(),
		Priority:    s.priority.Holder(),
		BankCash:    bank,
	}
}

// Pending returns the mandatory action, if one is queued.
func (s *RoundSequencer) Pending() (MandatoryAction, bool) {
	if s.pending == nil {
		return MandatoryAction{}, false
	}
	return *s.pending, true
}

// SetPending fills the one-slot mandatory action. The slot must be empty.
func (s *RoundSequencer) SetPending(a MandatoryAction) {
	if s.pending != nil {
		invariant(false, "mandatory action %s already pending", s.pending.Kind)
	}
	s.pending = &a
}

// ReplacePending updates the queued mandatory action in place.
func (s *RoundSequencer) ReplacePending(a MandatoryAction) {
	invariant(s.pending != nil, "no mandatory action pending")
	s.pending = &a
}

// ClearPending empties the slot.
func (s *RoundSequencer) ClearPending() { s.pending = nil }

// Complete ends the active round and enters the next one.
func (s *RoundSequencer) Complete(packetsRemaining int) Transition {
	s.counters.PacketsRemaining = packetsRemaining
	if s.round.Kind != RoundOperating {
		s.counters.OperatingTarget = s.gate.OperatingRounds()
	}
	proposed := NextRound(s.round.Kind, SignalComplete, s.counters)

	view := s.View()
	if s.round.Kind == RoundOperating && s.counters.FinalSequenceStarted && s.policy.OnFinalSequenceCheck != nil {
		if t, ok := s.policy.OnFinalSequenceCheck(view, proposed); ok {
			proposed = t
		}
	}
	if s.policy.OnRoundComplete != nil {
		if t, ok := s.policy.OnRoundComplete(view, proposed); ok {
			proposed = t
		}
	}
	return s.apply(proposed)
}

// Shortfall nests a forced share sale for payer inside the active round.
func (s *RoundSequencer) Shortfall(payer, payee string, amount int64) Transition {
	invariant(s.round.Kind == RoundTrading || s.round.Kind == RoundOperating, "shortfall during %s", s.round.Kind)
	t := s.apply(NextRound(s.round.Kind, SignalShortfall, s.counters))
	s.ClearPending()
	s.SetPending(MandatoryAction{Kind: ActionSellShare, Actor: payer, Holder: payee, Amount: amount})
	return t
}

// Resume leaves the forced share sale and returns to the interrupted round without renumbering it.
func (s *RoundSequencer) Resume(interrupted RoundDescriptor) Transition {
	t := NextRound(s.round.Kind, SignalShortfallResolved, s.counters)
	s.ClearPending()
	s.counters = t.Counters
	s.round = interrupted
	return t
}

// EndGame moves straight to GameOver.
func (s *RoundSequencer) EndGame(reason string) Transition {
	t := NextRound(s.round.Kind, SignalEndGame, s.counters)
	t.Reason = reason
	return s.apply(t)
}

// StartFinalSequence starts counting down to the end of the game. Repeated calls are no-ops.
func (s *RoundSequencer) StartFinalSequence() {
	if s.counters.FinalSequenceStarted {
		return
	}
	s.counters.FinalSequenceStarted = true
	s.counters.FinalSequence = 0
}

// HandleInterrupts consumes the gate's interrupts at a safe point and applies their effects.
func (s *RoundSequencer) HandleInterrupts() []Interrupt {
	its := s.gate.TakeInterrupts()
	for _, it := range its {
		effect := ExhaustionEffect{
			EndOperating:       it.EndOperating,
			StartFinalSequence: it.Granted.Has(PermissionFinalPhase),
		}
		if s.policy.OnResourceTypeExhausted != nil {
			effect = s.policy.OnResourceTypeExhausted(s.View(), it)
		}
		if effect.EndOperating && s.round.Kind == RoundOperating {
			s.counters.PrematureExit = true
		}
		if effect.StartFinalSequence {
			s.StartFinalSequence()
		}
	}
	return its
}

// NextDiscard queues a discard for the first holder, in operating order, above the resource limit.
// It returns false and clears the slot once nobody is over the limit.
func (s *RoundSequencer) NextDiscard(order []string, held func(holder string) int, actor func(holder string) string) bool {
	limit := s.gate.Limit()
	s.ClearPending()
	if limit <= 0 {
		return false
	}
	for _, h := range order {
		if held(h) > limit {
			s.SetPending(MandatoryAction{Kind: ActionDiscardResource, Actor: actor(h), Holder: h})
			return true
		}
	}
	return false
}

func (s *RoundSequencer) apply(t Transition) Transition {
	s.counters = t.Counters
	s.enter(t.Next)
	return t
}

func (s *RoundSequencer) enter(kind RoundKind) {
	s.round = RoundDescriptor{Kind: kind, Number: s.round.Number + 1}
	if kind == RoundOperating {
		s.round.Progress = s.counters.OperatingRun + 1
		s.round.Of = s.counters.OperatingTarget
	}
}
