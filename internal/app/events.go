package app

import "rails/internal/domain"

// EventKind identifies emitted game events for dispatch to clients.
type EventKind string

const (
	EventGameStarted       EventKind = "game_started"
	EventRoundStarted      EventKind = "round_started"
	EventRoundCompleted    EventKind = "round_completed"
	EventRoundResumed      EventKind = "round_resumed"
	EventTurnChanged       EventKind = "turn_changed"
	EventItemSelected      EventKind = "item_selected"
	EventBidPlaced         EventKind = "bid_placed"
	EventPassed            EventKind = "passed"
	EventPriceReduced      EventKind = "price_reduced"
	EventItemSold          EventKind = "item_sold"
	EventPriorityChanged   EventKind = "priority_changed"
	EventShareTraded       EventKind = "share_traded"
	EventResourceAcquired  EventKind = "resource_acquired"
	EventResourceExhausted EventKind = "resource_exhausted"
	EventResourceRusted    EventKind = "resource_rusted"
	EventResourceDiscarded EventKind = "resource_discarded"
	EventMandatoryAction   EventKind = "mandatory_action"
	EventPaymentMade       EventKind = "payment_made"
	EventBankruptcy        EventKind = "bankruptcy"
	EventItemExchanged     EventKind = "item_exchanged"
	EventOperatingReport   EventKind = "operating_report"
	EventGameEnded         EventKind = "game_ended"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // participant ids; empty means broadcast
}

type GameStartedPayload struct {
	GameID       string
	Participants []string
	Ruleset      string
}

type RoundStartedPayload struct {
	Round domain.RoundDescriptor
	Turn  string
}

type RoundCompletedPayload struct {
	From   domain.RoundKind
	Next   domain.RoundKind
	Reason string
}

type TurnChangedPayload struct {
	Turn    string
	Company string `json:",omitempty"`
}

type ItemSelectedPayload struct {
	Participant string
	Item        string
}

type BidPlacedPayload struct {
	Participant string
	Item        string
	Amount      int64
	NextTurn    string
}

type PassedPayload struct {
	Participant string
	Item        string `json:",omitempty"`
	NextTurn    string
}

type PriceReducedPayload struct {
	Item     string
	Price    int64
	NextTurn string
}

type ItemSoldPayload struct {
	Item   string
	Winner string
	Price  int64
	Forced bool
}

type PriorityChangedPayload struct {
	Holder string
}

type ShareTradedPayload struct {
	Participant string
	Company     string
	Price       int64
	Bought      bool
}

type ResourceAcquiredPayload struct {
	Company  string
	Resource string
	Price    int64
}

type ResourceExhaustedPayload struct {
	Exhausted   string
	Unlocked    string
	HolderLimit int
	Granted     []domain.Token
}

type ResourceRustedPayload struct {
	Resource string
	Holders  []string
}

type ResourceDiscardedPayload struct {
	Company  string
	Resource string
}

type MandatoryActionPayload struct {
	Action domain.MandatoryAction
}

type PaymentMadePayload struct {
	Payer  string
	Payee  string
	Amount int64
}

type BankruptcyPayload struct {
	Participant string
	Paid        int64
}

type ItemExchangedPayload struct {
	Participant string
	Item        string
	Company     string
}

type OperatingReportPayload struct {
	Round  domain.RoundDescriptor
	Report string
}

type GameEndedPayload struct {
	Reason    string
	Standings []Standing
	Token     string
}
