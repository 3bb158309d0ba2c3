package domain

// CashView reports the total cash a participant holds, blocked amounts included.
type CashView interface {
	Cash(participant string) int64
}

// AuctionStep is the sub-step of the item currently in focus.
type AuctionStep int

const (
	StepIdle AuctionStep = iota
	StepSelection
	StepBidding
)

func (s AuctionStep) String() string {
	switch s {
	case StepSelection:
		return "selection"
	case StepBidding:
		return "bidding"
	default:
		return "idle"
	}
}

// AuctionState is the per-item protocol state.
type AuctionState struct {
	Step    AuctionStep
	Item    string
	Turn    string
	Starter string // participant who opened the current pricing cycle
	MinBid  int64
	Passed  map[string]bool
}

// EscrowChange is a block (positive) or release (negative) of a participant's cash on an item.
type EscrowChange struct {
	Participant string
	Item        string
	Amount      int64
}

// OutcomeKind says how a bid or pass resolved the item in focus.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeSold
	OutcomeReduced
	OutcomeForced
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSold:
		return "sold"
	case OutcomeReduced:
		return "reduced"
	case OutcomeForced:
		return "forced"
	default:
		return "pending"
	}
}

// Outcome describes the resolution of an item. Winner and NextPriority are set for Sold and
// Forced; Price is the sale price or the new base price after a reduction.
type Outcome struct {
	Kind         OutcomeKind
	Item         string
	Winner       string
	Price        int64
	NextPriority string
}

// AuctionResult is everything a single bid or pass changed outside the engine.
type AuctionResult struct {
	Escrow  []EscrowChange
	Outcome Outcome
}

// AuctionEngine runs the sequential-bidding protocol over a queue of items. It owns the items,
// the bid state and the escrow book; settling cash is left to the caller.
type AuctionEngine struct {
	cfg          AuctionConfig
	cash         CashView
	participants *PriorityTracker
	skip         func(string) bool

	queue  []string
	items  map[string]*Item
	blocks map[string]map[string]int64 // participant -> item -> blocked

	packet int
	state  AuctionState
}

// NewAuctionEngine copies items into the engine in queue order. Items without an increment bid in
// whole units.
func NewAuctionEngine(cfg AuctionConfig, cash CashView, participants *PriorityTracker, items []Item) *AuctionEngine {
	e := &AuctionEngine{
		cfg:          cfg,
		cash:         cash,
		participants: participants,
		items:        make(map[string]*Item, len(items)),
		blocks:       make(map[string]map[string]int64),
	}
	for i := range items {
		it := items[i]
		invariant(it.ID != "", "item without id")
		invariant(e.items[it.ID] == nil, "duplicate item %q", it.ID)
		if it.Increment <= 0 {
			it.Increment = 1
		}
		if it.Status != ItemSold {
			it.Status = ItemUnavailable
		}
		e.items[it.ID] = &it
		e.queue = append(e.queue, it.ID)
	}
	return e
}

// SkipWhen excludes participants for which skip returns true from turns, resolution counts and
// forced assignment.
func (e *AuctionEngine) SkipWhen(skip func(string) bool) { e.skip = skip }

func (e *AuctionEngine) out(id string) bool { return e.skip != nil && e.skip(id) }

// eligible returns the participants still taking part, in order.
func (e *AuctionEngine) eligible() []string {
	var in []string
	for _, p := range e.participants.Order() {
		if !e.out(p) {
			in = append(in, p)
		}
	}
	return in
}

// Item returns a copy of the item.
func (e *AuctionEngine) Item(id string) (Item, bool) {
	it, ok := e.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Items returns copies of every item in queue order.
func (e *AuctionEngine) Items() []Item {
	out := make([]Item, 0, len(e.queue))
	for _, id := range e.queue {
		out = append(out, *e.items[id])
	}
	return out
}

// State returns a copy of the protocol state.
func (e *AuctionEngine) State() AuctionState {
	s := e.state
	s.Passed = make(map[string]bool, len(e.state.Passed))
	for k, v := range e.state.Passed {
		s.Passed[k] = v
	}
	return s
}

// Active reports whether an item is in focus.
func (e *AuctionEngine) Active() bool { return e.state.Step != StepIdle }

// Packet returns the packet being auctioned.
func (e *AuctionEngine) Packet() int { return e.packet }

// Blocked returns the participant's total escrowed cash.
func (e *AuctionEngine) Blocked(participant string) int64 {
	var total int64
	for _, v := range e.blocks[participant] {
		total += v
	}
	return total
}

// BlockedOn returns the participant's escrow on one item.
func (e *AuctionEngine) BlockedOn(participant, item string) int64 {
	return e.blocks[participant][item]
}

// NextPacket returns the lowest packet with unsold items, provided its gate token has been granted.
func (e *AuctionEngine) NextPacket(perms TokenSet) (int, bool) {
	packet, found := 0, false
	for _, id := range e.queue {
		it := e.items[id]
		if it.Status == ItemSold {
			continue
		}
		if !found || it.Packet < packet {
			packet, found = it.Packet, true
		}
	}
	if !found {
		return 0, false
	}
	for _, id := range e.queue {
		it := e.items[id]
		if it.Packet == packet && it.Status != ItemSold && it.Requires != "" && !perms.Has(it.Requires) {
			return packet, false
		}
	}
	return packet, true
}

// Unsold reports whether any item remains unsold, open or gated.
func (e *AuctionEngine) Unsold() bool {
	for _, id := range e.queue {
		if e.items[id].Status != ItemSold {
			return true
		}
	}
	return false
}

// OpenSelection makes the unsold items of packet selectable and puts the packet head in focus with
// turn to act. It fails while an item is under auction.
func (e *AuctionEngine) OpenSelection(packet int, turn string) ([]Action, error) {
	if e.state.Step == StepBidding {
		return nil, Reject(KindWrongRoundOrStep, "item %s is under auction", e.state.Item)
	}
	invariant(e.participants.Contains(turn), "unknown participant %q", turn)
	if e.out(turn) {
		next, ok := e.participants.NextFrom(turn, e.out)
		if !ok {
			return nil, Reject(KindWrongRoundOrStep, "no participant left to auction")
		}
		turn = next
	}

	head := ""
	for _, id := range e.queue {
		it := e.items[id]
		if it.Packet != packet || it.Status == ItemSold {
			continue
		}
		if head == "" {
			head = id
		}
	}
	if head == "" {
		return nil, Reject(KindItemNotAuctionable, "packet %d has nothing for sale", packet)
	}
	for _, id := range e.queue {
		if it := e.items[id]; it.Packet == packet && it.Status != ItemSold {
			it.Status = ItemSelectable
		}
	}

	e.packet = packet
	e.state = AuctionState{
		Step:    StepSelection,
		Item:    head,
		Turn:    turn,
		Starter: turn,
		MinBid:  e.items[head].MinimumBid(),
		Passed:  make(map[string]bool),
	}
	return e.selectActions(turn), nil
}

// LegalActions lists what the turn holder may do. Bid templates carry the affordable range.
func (e *AuctionEngine) LegalActions() []Action {
	if e.state.Step == StepIdle {
		return nil
	}
	p := e.state.Turn
	var out []Action
	if e.state.Step == StepSelection {
		out = append(out, e.selectActions(p)...)
		for _, id := range e.queue {
			if it := e.items[id]; it.Status == ItemSelectable && it.Packet == e.packet {
				if id == e.state.Item && e.state.Passed[p] {
					continue
				}
				if a, ok := e.bidTemplate(p, it); ok {
					out = append(out, a)
				}
			}
		}
	} else if !e.state.Passed[p] {
		if a, ok := e.bidTemplate(p, e.items[e.state.Item]); ok {
			out = append(out, a)
		}
	}
	if !e.state.Passed[p] {
		out = append(out, Action{Kind: ActionPass, Actor: p, Item: e.state.Item})
	}
	return out
}

func (e *AuctionEngine) selectActions(p string) []Action {
	var out []Action
	for _, id := range e.queue {
		if it := e.items[id]; it.Status == ItemSelectable && it.Packet == e.packet {
			out = append(out, Action{Kind: ActionSelectForAuction, Actor: p, Item: id})
		}
	}
	return out
}

func (e *AuctionEngine) bidTemplate(p string, it *Item) (Action, bool) {
	minBid := roundUp(it.MinimumBid(), it.Increment)
	maxBid := e.freeCash(p, it.ID) / it.Increment * it.Increment
	if maxBid < minBid {
		return Action{}, false
	}
	return Action{Kind: ActionBid, Actor: p, Item: it.ID, MinBid: minBid, MaxBid: maxBid, Step: it.Increment}, true
}

func roundUp(v, step int64) int64 {
	if r := v % step; r != 0 {
		return v + step - r
	}
	return v
}

func (e *AuctionEngine) freeCash(p, item string) int64 {
	return e.cash.Cash(p) - e.Blocked(p) + e.blocks[p][item]
}

// Select moves the selection step to bidding on itemID, with the selector to act first.
func (e *AuctionEngine) Select(participant, itemID string) error {
	if e.state.Step != StepSelection {
		return Reject(KindWrongRoundOrStep, "not in the selection step")
	}
	it, ok := e.items[itemID]
	if !ok || it.Status != ItemSelectable || it.Packet != e.packet {
		return Reject(KindItemNotAuctionable, "item %s is not selectable", itemID)
	}
	if e.state.Turn != participant {
		return Reject(KindWrongTurnHolder, "%s is to act, not %s", e.state.Turn, participant)
	}
	if itemID != e.state.Item {
		e.focus(itemID, participant)
	} else {
		e.state.Starter = participant
	}
	e.state.Step = StepBidding
	return nil
}

func (e *AuctionEngine) focus(itemID, by string) {
	e.state.Item = itemID
	e.state.Passed = make(map[string]bool)
	e.state.MinBid = e.items[itemID].MinimumBid()
	e.state.Starter = by
}

func (e *AuctionEngine) checkBiddable(participant, itemID string) (*Item, error) {
	if e.state.Step == StepIdle {
		return nil, Reject(KindWrongRoundOrStep, "no auction in progress")
	}
	it, ok := e.items[itemID]
	if !ok {
		return nil, Reject(KindItemNotAuctionable, "unknown item %s", itemID)
	}
	if (it.Status != ItemSelectable && it.Status != ItemUnderAuction) || it.Packet != e.packet {
		return nil, Reject(KindItemNotAuctionable, "item %s is %s", itemID, it.Status)
	}
	if e.state.Step == StepBidding && itemID != e.state.Item {
		return nil, Reject(KindItemNotAuctionable, "item %s is being auctioned", e.state.Item)
	}
	if itemID == e.state.Item && e.state.Passed[participant] {
		return nil, Reject(KindAlreadyPassed, "%s passed on %s", participant, itemID)
	}
	if e.state.Turn != participant {
		return nil, Reject(KindWrongTurnHolder, "%s is to act, not %s", e.state.Turn, participant)
	}
	return it, nil
}

// PlaceBid validates then applies a bid: minimum, modulus, then free cash.
func (e *AuctionEngine) PlaceBid(participant, itemID string, amount int64) (AuctionResult, error) {
	it, err := e.checkBiddable(participant, itemID)
	if err != nil {
		return AuctionResult{}, err
	}
	if minBid := it.MinimumBid(); amount < minBid {
		return AuctionResult{}, Reject(KindBidBelowMinimum, "bid %d below minimum %d", amount, minBid)
	}
	if amount%it.Increment != 0 {
		return AuctionResult{}, Reject(KindBidNotMultipleOfIncrement, "bid %d is not a multiple of %d", amount, it.Increment)
	}
	if free := e.freeCash(participant, itemID); amount > free {
		return AuctionResult{}, Reject(KindInsufficientFunds, "bid %d exceeds free cash %d", amount, free)
	}

	var res AuctionResult
	if itemID != e.state.Item {
		e.focus(itemID, participant)
	}
	if prior := e.blocks[participant][itemID]; prior > 0 {
		res.Escrow = append(res.Escrow, e.release(participant, itemID))
	}
	res.Escrow = append(res.Escrow, e.block(participant, itemID, amount))

	it.HighestBid = amount
	it.Bidder = participant
	it.Status = ItemUnderAuction
	e.state.Step = StepBidding
	if !e.cfg.PassesPersist {
		e.state.Passed = make(map[string]bool)
	}
	e.state.MinBid = amount + it.Increment

	e.settle(participant, &res)
	return res, nil
}

// Pass records that participant passes on the item in focus. An empty itemID means the item in focus.
func (e *AuctionEngine) Pass(participant, itemID string) (AuctionResult, error) {
	if e.state.Step == StepIdle {
		return AuctionResult{}, Reject(KindWrongRoundOrStep, "no auction in progress")
	}
	if itemID == "" {
		itemID = e.state.Item
	}
	if itemID != e.state.Item {
		return AuctionResult{}, Reject(KindItemNotAuctionable, "passes apply to %s", e.state.Item)
	}
	if e.state.Passed[participant] {
		return AuctionResult{}, Reject(KindAlreadyPassed, "%s passed on %s", participant, itemID)
	}
	if e.state.Turn != participant {
		return AuctionResult{}, Reject(KindWrongTurnHolder, "%s is to act, not %s", e.state.Turn, participant)
	}

	var res AuctionResult
	e.state.Passed[participant] = true
	// the high bidder never holds the turn, so only an outbid block is released here
	if e.blocks[participant][itemID] > 0 {
		res.Escrow = append(res.Escrow, e.release(participant, itemID))
	}
	e.settle(participant, &res)
	return res, nil
}

func (e *AuctionEngine) settle(actor string, res *AuctionResult) {
	res.Outcome = e.resolve(actor, res)
	if res.Outcome.Kind == OutcomePending {
		next, ok := e.participants.NextFrom(actor, func(id string) bool { return e.state.Passed[id] || e.out(id) })
		invariant(ok, "no participant left to act on %s", e.state.Item)
		e.state.Turn = next
	}
}

func (e *AuctionEngine) resolve(last string, res *AuctionResult) Outcome {
	it := e.items[e.state.Item]
	in := e.eligible()
	n, passed := len(in), 0
	for _, p := range in {
		if e.state.Passed[p] {
			passed++
		}
	}
	switch {
	case it.Bidder != "" && passed >= n-1:
		return e.sell(it, it.Bidder, it.HighestBid, OutcomeSold, res)
	case it.Bidder == "" && passed >= n:
		next, atFloor := e.cfg.Reduction.Next(it.BasePrice, it.Increment)
		if next != it.BasePrice {
			it.Reductions++
		}
		it.BasePrice = next
		if atFloor {
			return e.sell(it, e.fallback(), next, OutcomeForced, res)
		}
		e.state.Passed = make(map[string]bool)
		e.state.Step = StepSelection
		e.state.MinBid = next
		e.state.Turn = e.after(last)
		e.state.Starter = e.state.Turn
		return Outcome{Kind: OutcomeReduced, Item: it.ID, Price: next}
	}
	return Outcome{Kind: OutcomePending, Item: it.ID}
}

func (e *AuctionEngine) fallback() string {
	if e.cfg.Reduction.Fallback == FallbackCycleStarter && e.state.Starter != "" && !e.out(e.state.Starter) {
		return e.state.Starter
	}
	holder := e.participants.Holder()
	if !e.out(holder) {
		return holder
	}
	return e.after(holder)
}

// after returns the next participant after id still taking part, or id when no one else is.
func (e *AuctionEngine) after(id string) string {
	if next, ok := e.participants.NextFrom(id, e.out); ok {
		return next
	}
	return id
}

func (e *AuctionEngine) sell(it *Item, winner string, price int64, kind OutcomeKind, res *AuctionResult) Outcome {
	for _, p := range e.participants.Order() {
		if e.blocks[p][it.ID] > 0 {
			res.Escrow = append(res.Escrow, e.release(p, it.ID))
		}
	}
	it.Status = ItemSold
	it.Owner = winner
	it.SoldPrice = price
	it.Bidder = winner
	it.HighestBid = price
	e.state = AuctionState{}
	return Outcome{
		Kind:         kind,
		Item:         it.ID,
		Winner:       winner,
		Price:        price,
		NextPriority: e.after(winner),
	}
}

func (e *AuctionEngine) block(p, item string, amount int64) EscrowChange {
	if e.blocks[p] == nil {
		e.blocks[p] = make(map[string]int64)
	}
	e.blocks[p][item] = amount
	invariant(e.Blocked(p) <= e.cash.Cash(p), "%s blocked more than their cash", p)
	return EscrowChange{Participant: p, Item: item, Amount: amount}
}

func (e *AuctionEngine) release(p, item string) EscrowChange {
	amount := e.blocks[p][item]
	delete(e.blocks[p], item)
	if len(e.blocks[p]) == 0 {
		delete(e.blocks, p)
	}
	return EscrowChange{Participant: p, Item: item, Amount: -amount}
}
