package config

import "time"

// GameConfig is the root configuration of one game variant.
type GameConfig struct {
	Name         string   `yaml:"name"`
	Participants []string `yaml:"participants"`
	StartingCash int64    `yaml:"starting_cash"`
	BankCash     int64    `yaml:"bank_cash"`

	Auction   AuctionConfig     `yaml:"auction"`
	Packets   []PacketConfig    `yaml:"packets"`
	Operating OperatingConfig   `yaml:"operating"`
	Resources ResourcesConfig   `yaml:"resources"`
	Companies []CompanyConfig   `yaml:"companies"`
	Market    MarketConfig      `yaml:"market"`
	Ruleset   RulesetConfig     `yaml:"ruleset"`
	Results   ResultsConfig     `yaml:"results"`
	Database  DBConfig          `yaml:"database"`
	Logging   LoggingConfig     `yaml:"logging"`
	Match     MatchConfig       `yaml:"match"`
	Bots      map[string]string `yaml:"bots"` // participant -> strategy level
}

// AuctionConfig holds the sequential auction parameters.
type AuctionConfig struct {
	Increment        int64  `yaml:"increment"`
	Decrement        int64  `yaml:"decrement"`
	DecrementPercent string `yaml:"decrement_percent"` // decimal, e.g. "12.5"
	Floor            int64  `yaml:"floor"`
	Fallback         string `yaml:"fallback"`
	PassesPersist    bool   `yaml:"passes_persist"`
}

// PacketConfig is a group of items auctioned together.
type PacketConfig struct {
	Requires string       `yaml:"requires"`
	Items    []ItemConfig `yaml:"items"`
}

// ItemConfig describes one auctioned item.
type ItemConfig struct {
	ID        string   `yaml:"id"`
	Price     int64    `yaml:"price"`
	Increment int64    `yaml:"increment"`
	Rights    []string `yaml:"rights"`
	Company   string   `yaml:"company"`  // share of this company comes with the item
	Exchange  string   `yaml:"exchange"` // may be exchanged for a share of this company
}

// OperatingConfig controls operating sequences and the end of the game.
type OperatingConfig struct {
	RoundsPerSequence int  `yaml:"rounds_per_sequence"`
	FinalBound        int  `yaml:"final_bound"`
	FinalExchange     bool `yaml:"final_exchange"`
	MustOwnResource   bool `yaml:"must_own_resource"`
}

// ResourcesConfig describes the typed resource sequence.
type ResourcesConfig struct {
	HolderLimit int                  `yaml:"holder_limit"`
	Types       []ResourceTypeConfig `yaml:"types"`
}

// ResourceTypeConfig is one resource type.
type ResourceTypeConfig struct {
	Name            string   `yaml:"name"`
	Count           int      `yaml:"count"`
	Price           int64    `yaml:"price"`
	HolderLimit     int      `yaml:"holder_limit"`
	OperatingRounds int      `yaml:"operating_rounds"`
	Grants          []string `yaml:"grants"`
	Exempt          bool     `yaml:"exempt"`
	EndsOperating   bool     `yaml:"ends_operating"`
	Rusts           string   `yaml:"rusts"`
}

// CompanyConfig describes a company.
type CompanyConfig struct {
	ID           string `yaml:"id"`
	Par          int64  `yaml:"par"`
	Shares       int    `yaml:"shares"`
	FloatPercent int    `yaml:"float_percent"`
}

// MarketConfig holds the share price ladder.
type MarketConfig struct {
	Ladder []int64 `yaml:"ladder"`
}

// RulesetConfig selects the ruleset policy.
type RulesetConfig struct {
	Name                    string `yaml:"name"`
	Script                  string `yaml:"script"` // Lua file for the "lua" ruleset
	ReorderByCash           bool   `yaml:"reorder_by_cash"`
	ContinueAfterBankruptcy bool   `yaml:"continue_after_bankruptcy"`
}

// ResultsConfig configures signing of final standings.
type ResultsConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// DBConfig holds the optional Postgres change-log connection. An empty host disables it.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool { return db.Host != "" }

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MatchConfig holds the realtime match settings.
type MatchConfig struct {
	MinSeats            int `yaml:"min_seats"`
	MaxSeats            int `yaml:"max_seats"`
	TurnDurationSeconds int `yaml:"turn_duration_seconds"`
	// BotAutoFillDelaySeconds is how long a lobby with a single human waits before bots fill the seats.
	BotAutoFillDelaySeconds int `yaml:"bot_auto_fill_delay_seconds"`
}
