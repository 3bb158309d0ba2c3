package domain

// ActionKind tags an action submitted to, or offered by, the engine.
type ActionKind string

const (
	ActionSelectForAuction  ActionKind = "select_for_auction"
	ActionBid               ActionKind = "bid"
	ActionPass              ActionKind = "pass"
	ActionBuyShare          ActionKind = "buy_share"
	ActionSellShare         ActionKind = "sell_share"
	ActionAcquireResource   ActionKind = "acquire_resource"
	ActionDiscardResource   ActionKind = "discard_resource"
	ActionEndTurn           ActionKind = "end_turn"
	ActionExchange          ActionKind = "exchange"
	ActionDeclareBankruptcy ActionKind = "declare_bankruptcy"
)

// Action is both a submitted action and, when returned by a legality query, the template of a
// legal one. Legal bid templates carry MinBid, MaxBid and Step.
type Action struct {
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Actor    string     `json:"actor" yaml:"actor"`
	Item     string     `json:"item,omitempty" yaml:"item,omitempty"`
	Amount   int64      `json:"amount,omitempty" yaml:"amount,omitempty"`
	Company  string     `json:"company,omitempty" yaml:"company,omitempty"`
	Resource string     `json:"resource,omitempty" yaml:"resource,omitempty"`

	MinBid int64 `json:"min_bid,omitempty" yaml:"-"`
	MaxBid int64 `json:"max_bid,omitempty" yaml:"-"`
	Step   int64 `json:"step,omitempty" yaml:"-"`
}

// Matches reports whether a submitted action fits this legal template, ignoring the amount.
func (a Action) Matches(submitted Action) bool {
	return a.Kind == submitted.Kind &&
		a.Actor == submitted.Actor &&
		a.Item == submitted.Item &&
		a.Company == submitted.Company &&
		a.Resource == submitted.Resource
}
